package logger

import (
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/internship-recommender/internal/utils"
)

const (
	// FieldProvider is the structured log field key for the embedding provider name.
	FieldProvider = "embedding_provider"
	// FieldModel is the structured log field key for the embedding model identifier.
	FieldModel = "embedding_model"
	// FieldCatalog is the structured log field key for the catalog file path.
	FieldCatalog = "catalog"
	// FieldVectors is the structured log field key for the vector cache file path.
	FieldVectors = "vectors"

	profilePreviewLength = 80
)

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts key/value pairs into zap fields. Entries with an empty
// key or value are dropped.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		value := strings.TrimSpace(field.Value)
		if key == "" || value == "" {
			continue
		}
		result = append(result, zap.String(key, value))
	}
	return result
}

// WithFields attaches fields to the logger, falling back to a no-op logger when nil.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(fields) == 0 {
		return logger
	}
	return logger.With(fields...)
}

// CommonFields describes the embedding provider and model.
func CommonFields(provider, model string) []zap.Field {
	return StringFields(
		StringField{Key: FieldProvider, Value: provider},
		StringField{Key: FieldModel, Value: model},
	)
}

// WithCommonFields attaches the provider and model fields to the logger.
func WithCommonFields(logger *zap.Logger, provider, model string) *zap.Logger {
	return WithFields(logger, CommonFields(provider, model)...)
}

// FileFields describes the catalog and vector cache files a component works on.
func FileFields(catalogPath, vectorsPath string) []zap.Field {
	return StringFields(
		StringField{Key: FieldCatalog, Value: catalogPath},
		StringField{Key: FieldVectors, Value: vectorsPath},
	)
}

// ProfileFields describes a ranking request. Free-text values are shortened
// so a pasted CV does not flood the log.
func ProfileFields(education, skills, location string, topK int) []zap.Field {
	return []zap.Field{
		zap.String("education", utils.TruncateForLog(education, profilePreviewLength)),
		zap.String("skills", utils.TruncateForLog(skills, profilePreviewLength)),
		zap.String("location", utils.TruncateForLog(location, profilePreviewLength)),
		zap.Int("top_k", topK),
	}
}
