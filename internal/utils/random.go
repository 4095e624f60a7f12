package utils

import (
	"math/rand"
	"strings"
	"time"

	"github.com/mozillazg/go-pinyin"
	"github.com/shopspring/decimal"
	"github.com/telesalud/shift-sync/backend/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

var commonSurnames = []string{
	"王", "李", "张", "刘", "陈", "杨", "赵", "黄", "周", "吴",
	"徐", "孙", "胡", "朱", "高", "林", "何", "郭", "马", "罗",
}
var commonNameCharacters = []string{
	"伟", "强", "芳", "敏", "静", "丽", "刚", "杰", "娟", "勇",
	"艳", "涛", "明", "军", "磊", "洋", "勇", "霞", "飞", "玲",
	"超", "华", "平", "辉", "梅", "鑫", "龙", "鹏", "玉", "斌",
	"庆", "建", "丹", "彬", "凤", "旭", "宁", "乐", "成", "欣",
}

func GenerateRandomChineseName() string {
	surname := commonSurnames[rand.Intn(len(commonSurnames))]
	nameLength := rand.Intn(2) + 1
	name := ""

	for i := 0; i < nameLength; i++ {
		name += commonNameCharacters[rand.Intn(len(commonNameCharacters))]
	}
	return surname + name
}

var digits = "0123456789"

func GenerateUsernameFromChineseName(chineseName string) string {
	pinyinArray := pinyin.LazyConvert(chineseName, nil)
	username := ""

	for _, pinyin := range pinyinArray {
		length := rand.Intn(len(pinyin)) + 1
		username += pinyin[:length]
	}

	digitsLength := rand.Intn(3) + 1
	for i := 0; i < digitsLength; i++ {
		username += string(digits[rand.Intn(len(digits))])
	}

	return username
}

// GenerateRandomProfessional 生成一个随机的医务人员档案，用户名同时作为邮箱前缀
func GenerateRandomProfessional(laborRegimeID int64, emailDomainName string) (*domain.Professional, string) {
	fullName := GenerateRandomChineseName()
	username := GenerateUsernameFromChineseName(fullName)

	return &domain.Professional{
		FullName:      fullName,
		Email:         username + "@" + emailDomainName,
		LaborRegimeID: laborRegimeID,
	}, username
}

// GenerateProfessionalUser 为医务人员档案生成登录账号
func GenerateProfessionalUser(professional *domain.Professional, username string, password string) (*domain.User, error) {
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	professionalID := professional.ID
	user := &domain.User{
		Username:       username,
		PasswordHash:   string(passwordHash),
		FullName:       professional.FullName,
		Email:          professional.Email,
		Role:           domain.RoleProfessional,
		ProfessionalID: &professionalID,
	}

	return user, nil
}

var shiftKinds = []domain.ShiftKind{
	domain.ShiftMorning,
	domain.ShiftAfternoon,
	domain.ShiftFull,
}

func GenerateRandomShiftKind() domain.ShiftKind {
	return shiftKinds[rand.Intn(len(shiftKinds))]
}

// 用 Fisher-Yates 洗牌算法打乱周期内的日期
func shuffledDays(period domain.Period) []domain.Date {
	first := period.FirstDay().Time()
	days := make([]domain.Date, period.Days())
	for i := range days {
		days[i] = domain.DateOf(first.AddDate(0, 0, i))
	}

	for i := len(days) - 1; i > 0; i-- {
		j := rand.Intn(i + 1)
		days[i], days[j] = days[j], days[i]
	}

	return days
}

// FillRandomShifts 随机选择日期申报班次，直到达到最少工时或用完周期内的所有日期
func FillRandomShifts(decl *domain.AvailabilityDeclaration, regime *domain.LaborRegime) error {
	for _, date := range shuffledDays(decl.Period) {
		if decl.TotalHours.GreaterThanOrEqual(decl.RequiredHours) {
			break
		}
		if err := decl.AddOrUpdateShift(date, GenerateRandomShiftKind(), regime); err != nil {
			return err
		}
	}

	return nil
}

// GenerateRandomDeclaration 生成一份已经提交的随机申报，工时不足时保持草稿状态
func GenerateRandomDeclaration(professionalID, specialtyID int64, period domain.Period, requiredHours decimal.Decimal, regime *domain.LaborRegime) (*domain.AvailabilityDeclaration, error) {
	params := domain.DeclarationParams{
		ProfessionalID: professionalID,
		SpecialtyID:    specialtyID,
		Period:         string(period),
		RequiredHours:  requiredHours,
		Notes:          "随机生成的申报 " + GenerateRandomID(4),
	}
	decl, err := domain.NewAvailabilityDeclaration(params)
	if err != nil {
		return nil, err
	}

	if err := FillRandomShifts(decl, regime); err != nil {
		return nil, err
	}

	if decl.TotalHours.GreaterThanOrEqual(decl.RequiredHours) {
		if err := decl.Submit(time.Now()); err != nil {
			return nil, err
		}
	}

	return decl, nil
}

var letters = "abcdefghijklmnopqrstuvwxyz"

func GenerateRandomID(length int) string {
	var b strings.Builder
	for i := 0; i < length; i++ {
		if i%2 == 0 {
			b.WriteByte(letters[rand.Intn(len(letters))])
		} else {
			b.WriteByte(digits[rand.Intn(len(digits))])
		}
	}
	return b.String()
}

// GenerateRandomPeriod 返回当前月份前后 months 个月内的随机周期
func GenerateRandomPeriod(months int) domain.Period {
	offset := 0
	if months > 0 {
		offset = rand.Intn(2*months+1) - months
	}
	now := time.Now()
	t := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, offset, 0)
	return domain.DateOf(t).Period()
}
