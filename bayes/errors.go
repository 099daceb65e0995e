package bayes

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// NotTrainedError is returned by Classify until the model has documents, a
// non-empty vocabulary, and has been finalized since its last training.
type NotTrainedError struct {
	VocabularySize int
	DocumentCount  int
	Finalized      bool
}

func (e *NotTrainedError) Error() string {
	return fmt.Sprintf("ngrambayes: model not trained and finalized (documents=%d vocabulary=%d finalized=%t)",
		e.DocumentCount, e.VocabularySize, e.Finalized)
}

// MarshalZerologObject adds the model state to a log event.
func (e *NotTrainedError) MarshalZerologObject(event *zerolog.Event) {
	event.Int("documents", e.DocumentCount).
		Int("vocabulary", e.VocabularySize).
		Bool("finalized", e.Finalized).
		Str("type", "NotTrainedError")
}

func newNotTrainedError(vocabulary, documents int, finalized bool) error {
	return errors.WithStack(&NotTrainedError{
		VocabularySize: vocabulary,
		DocumentCount:  documents,
		Finalized:      finalized,
	})
}

// ConfigurationError is returned by NewClassifier for an invalid option.
type ConfigurationError struct {
	Param  string
	Reason string
	Value  any
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("ngrambayes: invalid %s: %s (got: %v)", e.Param, e.Reason, e.Value)
}

// MarshalZerologObject adds the rejected option to a log event.
func (e *ConfigurationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param", e.Param).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ConfigurationError")
}

func newConfigurationError(param, reason string, value any) error {
	return errors.WithStack(&ConfigurationError{Param: param, Reason: reason, Value: value})
}

// ShardFailure reports the shard that failed a parallel training run or merge.
// When it is returned the model has not been changed.
type ShardFailure struct {
	Index    int
	Category string
	Err      error
}

func (e *ShardFailure) Error() string {
	return fmt.Sprintf("ngrambayes: shard %d (category %q) failed: %v", e.Index, e.Category, e.Err)
}

func (e *ShardFailure) Unwrap() error {
	return e.Err
}

// MarshalZerologObject adds the shard identity to a log event.
func (e *ShardFailure) MarshalZerologObject(event *zerolog.Event) {
	event.Int("shard", e.Index).
		Str("category", e.Category).
		AnErr("cause", e.Err).
		Str("type", "ShardFailure")
}

func newShardFailure(index int, category string, err error) error {
	return errors.WithStack(&ShardFailure{Index: index, Category: category, Err: err})
}

var errEmptyCategory = errors.New("category name must not be empty")
