package knowledge

import (
	_ "embed"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"aurorai/internal/domain/entity"
	"aurorai/internal/domain/port"
)

//go:embed hazards.yaml
var defaultTable []byte

type tableFile struct {
	Hazards []tableEntry `yaml:"hazards"`
}

type tableEntry struct {
	Type            string   `yaml:"type"`
	Aliases         []string `yaml:"aliases"`
	Description     string   `yaml:"description"`
	Impact          []string `yaml:"impact"`
	Recommendations []string `yaml:"recommendations"`
}

// Base неизменяемый справочник дефектов, живёт всё время работы процесса.
type Base struct {
	info  map[entity.HazardType]entity.HazardInfo
	index map[string]entity.HazardType // нормализованная метка или синоним -> тип
}

// Default загружает встроенную таблицу.
func Default() (*Base, error) {
	return Parse(defaultTable)
}

// MustDefault как Default, но паникует при ошибке встроенной таблицы.
func MustDefault() *Base {
	kb, err := Default()
	if err != nil {
		panic(err)
	}
	return kb
}

// Parse разбирает YAML-таблицу и проверяет, что описаны все известные типы.
func Parse(data []byte) (*Base, error) {
	var file tableFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse hazard table: %w", err)
	}

	kb := &Base{
		info:  make(map[entity.HazardType]entity.HazardInfo, len(file.Hazards)),
		index: make(map[string]entity.HazardType),
	}

	known := make(map[entity.HazardType]bool)
	for _, t := range entity.AllHazardTypes() {
		known[t] = true
	}

	for _, e := range file.Hazards {
		t := entity.HazardType(entity.NormalizeLabel(e.Type))
		if !known[t] {
			return nil, fmt.Errorf("hazard table: unknown type %q", e.Type)
		}
		if e.Description == "" {
			return nil, fmt.Errorf("hazard table: %s has no description", t)
		}
		if _, dup := kb.info[t]; dup {
			return nil, fmt.Errorf("hazard table: duplicate type %s", t)
		}

		kb.info[t] = entity.HazardInfo{
			Description:     e.Description,
			Impact:          append([]string(nil), e.Impact...),
			Recommendations: append([]string(nil), e.Recommendations...),
		}
		kb.index[string(t)] = t
		for _, alias := range e.Aliases {
			key := entity.NormalizeLabel(alias)
			if other, taken := kb.index[key]; taken && other != t {
				return nil, fmt.Errorf("hazard table: alias %q used by %s and %s", alias, other, t)
			}
			kb.index[key] = t
		}
	}

	var missing []error
	for _, t := range entity.AllHazardTypes() {
		if _, ok := kb.info[t]; !ok {
			missing = append(missing, fmt.Errorf("hazard table: %s is not described", t))
		}
	}
	if len(missing) > 0 {
		return nil, errors.Join(missing...)
	}

	return kb, nil
}

// Lookup возвращает описание по метке. Неизвестная метка не ошибка.
func (b *Base) Lookup(label string) (entity.HazardInfo, bool) {
	t, ok := b.index[entity.NormalizeLabel(label)]
	if !ok {
		return entity.HazardInfo{}, false
	}
	return b.copyInfo(t), true
}

// Classify возвращает KnownHazard или UnknownHazard.
func (b *Base) Classify(label string) entity.Hazard {
	t, ok := b.index[entity.NormalizeLabel(label)]
	if !ok {
		return entity.UnknownHazard{Label: label}
	}
	return entity.KnownHazard{Type: t, Label: label, Info: b.copyInfo(t)}
}

// copyInfo отдаёт копию, чтобы вызывающий код не мог изменить таблицу.
func (b *Base) copyInfo(t entity.HazardType) entity.HazardInfo {
	info := b.info[t]
	return entity.HazardInfo{
		Description:     info.Description,
		Impact:          append([]string(nil), info.Impact...),
		Recommendations: append([]string(nil), info.Recommendations...),
	}
}

var _ port.HazardKnowledgeBase = (*Base)(nil)
