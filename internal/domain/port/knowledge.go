package port

import "aurorai/internal/domain/entity"

// HazardKnowledgeBase справочник описаний дефектов
type HazardKnowledgeBase interface {
	// Lookup возвращает описание по метке детектора
	Lookup(label string) (entity.HazardInfo, bool)

	// Classify возвращает KnownHazard или UnknownHazard
	Classify(label string) entity.Hazard
}
