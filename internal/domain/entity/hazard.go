package entity

import "strings"

// HazardType тип дорожного дефекта, известный базе знаний
type HazardType string

const (
	HazardCrocodileCrack    HazardType = "crocodile-crack"    // сетка трещин («крокодиловая кожа»)
	HazardLateralCrack      HazardType = "lateral-crack"      // поперечная трещина
	HazardLongitudinalCrack HazardType = "longitudinal-crack" // продольная трещина
	HazardPothole           HazardType = "pothole"            // выбоина
)

// AllHazardTypes возвращает все известные типы в фиксированном порядке.
func AllHazardTypes() []HazardType {
	return []HazardType{
		HazardCrocodileCrack,
		HazardLateralCrack,
		HazardLongitudinalCrack,
		HazardPothole,
	}
}

// HazardInfo описание дефекта для отчёта и интерфейса
type HazardInfo struct {
	Description     string
	Impact          []string
	Recommendations []string
}

// Hazard результат классификации метки детектора: KnownHazard или UnknownHazard.
type Hazard interface {
	HazardLabel() string
	isHazard()
}

// KnownHazard метка, для которой в базе знаний есть описание.
type KnownHazard struct {
	Type  HazardType
	Label string // исходная метка от сервиса
	Info  HazardInfo
}

// UnknownHazard метка, которой нет в базе знаний. Такие метки молча пропускаются.
type UnknownHazard struct {
	Label string
}

func (h KnownHazard) HazardLabel() string   { return h.Label }
func (h UnknownHazard) HazardLabel() string { return h.Label }

func (KnownHazard) isHazard()   {}
func (UnknownHazard) isHazard() {}

// NormalizeLabel приводит метку к виду "crocodile-crack".
// Модель отдаёт метки вида "crocodile crack", поэтому пробелы и подчёркивания заменяются дефисом.
func NormalizeLabel(label string) string {
	label = strings.ToLower(strings.TrimSpace(label))
	label = strings.Join(strings.FieldsFunc(label, func(r rune) bool {
		return r == ' ' || r == '_' || r == '-' || r == '\t'
	}), "-")
	return label
}
