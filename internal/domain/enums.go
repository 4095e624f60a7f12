package domain

import (
	"database/sql/driver"
	"fmt"
)

// enumTable 描述一个封闭枚举在 API（英文大写名）和数据库（历史字符串）两侧的表示
type enumTable struct {
	kind    string
	names   []string
	storage []string
}

func (t enumTable) name(v uint8) string {
	if v == 0 || int(v) >= len(t.names) {
		return "UNKNOWN"
	}
	return t.names[v]
}

func (t enumTable) parse(s string) (uint8, error) {
	for i := 1; i < len(t.names); i++ {
		if t.names[i] == s {
			return uint8(i), nil
		}
	}
	return 0, &ValidationError{Field: t.kind, Message: fmt.Sprintf("无效的取值 %q", s)}
}

func (t enumTable) fromStorage(s string) (uint8, error) {
	for i := 1; i < len(t.storage); i++ {
		if t.storage[i] == s {
			return uint8(i), nil
		}
	}
	return 0, fmt.Errorf("数据库中存在无效的 %s: %q", t.kind, s)
}

func (t enumTable) value(v uint8) (driver.Value, error) {
	if v == 0 || int(v) >= len(t.storage) {
		return nil, fmt.Errorf("无法写入无效的 %s: %d", t.kind, v)
	}
	return t.storage[v], nil
}

func (t enumTable) scan(src any) (uint8, error) {
	switch v := src.(type) {
	case string:
		return t.fromStorage(v)
	case []byte:
		return t.fromStorage(string(v))
	default:
		return 0, fmt.Errorf("无法将 %T 解析为 %s", src, t.kind)
	}
}

/**********************************************
 * 班次类型
 **********************************************/

type ShiftKind uint8

const (
	ShiftMorning ShiftKind = iota + 1
	ShiftAfternoon
	ShiftFull
)

var shiftKinds = enumTable{
	kind:    "shiftKind",
	names:   []string{"", "MORNING", "AFTERNOON", "FULL"},
	storage: []string{"", "M", "T", "MT"},
}

func (k ShiftKind) Valid() bool    { return k >= ShiftMorning && k <= ShiftFull }
func (k ShiftKind) String() string { return shiftKinds.name(uint8(k)) }

func ParseShiftKind(s string) (ShiftKind, error) {
	v, err := shiftKinds.parse(s)
	return ShiftKind(v), err
}

func (k ShiftKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }
func (k *ShiftKind) UnmarshalText(b []byte) error {
	v, err := ParseShiftKind(string(b))
	*k = v
	return err
}
func (k ShiftKind) Value() (driver.Value, error) { return shiftKinds.value(uint8(k)) }
func (k *ShiftKind) Scan(src any) error {
	v, err := shiftKinds.scan(src)
	*k = ShiftKind(v)
	return err
}

/**********************************************
 * 申报状态
 **********************************************/

type DeclarationState uint8

const (
	StateDraft DeclarationState = iota + 1
	StateSubmitted
	StateReviewed
)

var declarationStates = enumTable{
	kind:    "state",
	names:   []string{"", "DRAFT", "SUBMITTED", "REVIEWED"},
	storage: []string{"", "BORRADOR", "ENVIADO", "REVISADO"},
}

func (s DeclarationState) String() string { return declarationStates.name(uint8(s)) }

func (s DeclarationState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }
func (s *DeclarationState) UnmarshalText(b []byte) error {
	v, err := declarationStates.parse(string(b))
	*s = DeclarationState(v)
	return err
}
func (s DeclarationState) Value() (driver.Value, error) { return declarationStates.value(uint8(s)) }
func (s *DeclarationState) Scan(src any) error {
	v, err := declarationStates.scan(src)
	*s = DeclarationState(v)
	return err
}

/**********************************************
 * 排班明细来源
 **********************************************/

type OriginKind uint8

const (
	OriginSynced OriginKind = iota + 1
	OriginManual
	OriginAdjusted
)

var originKinds = enumTable{
	kind:    "originKind",
	names:   []string{"", "SYNCED", "MANUAL", "ADJUSTED"},
	storage: []string{"", "SINCRONIZADO", "MANUAL", "AJUSTADO"},
}

func (o OriginKind) String() string { return originKinds.name(uint8(o)) }

func (o OriginKind) MarshalText() ([]byte, error) { return []byte(o.String()), nil }
func (o *OriginKind) UnmarshalText(b []byte) error {
	v, err := originKinds.parse(string(b))
	*o = OriginKind(v)
	return err
}
func (o OriginKind) Value() (driver.Value, error) { return originKinds.value(uint8(o)) }
func (o *OriginKind) Scan(src any) error {
	v, err := originKinds.scan(src)
	*o = OriginKind(v)
	return err
}

/**********************************************
 * 同步操作类型
 **********************************************/

type OperationKind uint8

const (
	OperationCreate OperationKind = iota + 1
	OperationUpdate
)

var operationKinds = enumTable{
	kind:    "operation",
	names:   []string{"", "CREATE", "UPDATE"},
	storage: []string{"", "CREAR", "ACTUALIZAR"},
}

func (o OperationKind) Valid() bool    { return o == OperationCreate || o == OperationUpdate }
func (o OperationKind) String() string { return operationKinds.name(uint8(o)) }

func ParseOperationKind(s string) (OperationKind, error) {
	v, err := operationKinds.parse(s)
	return OperationKind(v), err
}

func (o OperationKind) MarshalText() ([]byte, error) { return []byte(o.String()), nil }
func (o *OperationKind) UnmarshalText(b []byte) error {
	v, err := ParseOperationKind(string(b))
	*o = v
	return err
}
func (o OperationKind) Value() (driver.Value, error) { return operationKinds.value(uint8(o)) }
func (o *OperationKind) Scan(src any) error {
	v, err := operationKinds.scan(src)
	*o = OperationKind(v)
	return err
}

/**********************************************
 * 同步结果
 **********************************************/

type SyncOutcome uint8

const (
	OutcomeSuccess SyncOutcome = iota + 1
	OutcomePartial
	OutcomeFailed
)

var syncOutcomes = enumTable{
	kind:    "result",
	names:   []string{"", "SUCCESS", "PARTIAL", "FAILED"},
	storage: []string{"", "EXITOSO", "PARCIAL", "FALLIDO"},
}

func (o SyncOutcome) String() string { return syncOutcomes.name(uint8(o)) }

func ParseSyncOutcome(s string) (SyncOutcome, error) {
	v, err := syncOutcomes.parse(s)
	return SyncOutcome(v), err
}

func (o SyncOutcome) MarshalText() ([]byte, error) { return []byte(o.String()), nil }
func (o *SyncOutcome) UnmarshalText(b []byte) error {
	v, err := ParseSyncOutcome(string(b))
	*o = v
	return err
}
func (o SyncOutcome) Value() (driver.Value, error) { return syncOutcomes.value(uint8(o)) }
func (o *SyncOutcome) Scan(src any) error {
	v, err := syncOutcomes.scan(src)
	*o = SyncOutcome(v)
	return err
}
