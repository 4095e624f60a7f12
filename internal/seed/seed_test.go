package seed

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/telesalud/shift-sync/backend/internal/domain"
)

func TestParseDeclarations(t *testing.T) {
	data := `邮箱,姓名,劳动制度,专科,周期,1,2,3,31
ana@hospital.example,王芳,LOCADOR,心脏科,202601,MT,,M,T
luis@hospital.example,李强,728/CAS,儿科,202601,,,,
`
	records, err := ParseDeclarations(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, 2, first.Line)
	assert.Equal(t, "ana@hospital.example", first.Email)
	assert.Equal(t, "LOCADOR", first.Regime)
	assert.Equal(t, "心脏科", first.Specialty)
	assert.Equal(t, domain.Period("202601"), first.Period)
	assert.Equal(t, []ShiftRecord{
		{Date: domain.NewDate(2026, 1, 1), Kind: domain.ShiftFull},
		{Date: domain.NewDate(2026, 1, 3), Kind: domain.ShiftMorning},
		{Date: domain.NewDate(2026, 1, 31), Kind: domain.ShiftAfternoon},
	}, first.Shifts)

	assert.Empty(t, records[1].Shifts)
}

func TestParseDeclarationsErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		msg  string
	}{
		{
			name: "缺少信息列",
			data: "邮箱,姓名,劳动制度,周期,1\n",
			msg:  "没有找到信息列 专科",
		},
		{
			name: "缺少日期列",
			data: "邮箱,姓名,劳动制度,专科,周期\n",
			msg:  "没有找到日期列",
		},
		{
			name: "日期超出周期",
			data: "邮箱,姓名,劳动制度,专科,周期,30\na@b.c,王伟,LOCADOR,儿科,202602,M\n",
			msg:  "周期 202602 没有第 30 天",
		},
		{
			name: "未知班次代码",
			data: "邮箱,姓名,劳动制度,专科,周期,1\na@b.c,王伟,LOCADOR,儿科,202602,N\n",
			msg:  "第 2 行第 1 天",
		},
		{
			name: "周期格式错误",
			data: "邮箱,姓名,劳动制度,专科,周期,1\na@b.c,王伟,LOCADOR,儿科,2026-02,M\n",
			msg:  "第 2 行",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDeclarations(strings.NewReader(tt.data))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}
