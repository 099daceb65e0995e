package bayes

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/hickeroar/ngrambayes/bayes/category"
	"github.com/hickeroar/ngrambayes/bayes/parallel"
	"github.com/hickeroar/ngrambayes/bayes/tokenizer"
)

var (
	errInvalidCount  = errors.New("invalid count in partial")
	errTallyMismatch = errors.New("tally does not match the sum of token counts")
)

// Shard is one unit of parallel training: documents that all belong to Category.
type Shard struct {
	Category  string
	Documents []string
}

// PartialCount holds the counts one shard contributes to its category.
type PartialCount struct {
	Category      string
	DocumentCount int
	TokenTally    int
	TokenCounts   map[string]int
}

// ComputePartial counts shard exactly as TrainText would count each of its
// documents into an empty category. It touches no shared state.
func ComputePartial(tok *tokenizer.Tokenizer, shard Shard) (PartialCount, error) {
	if shard.Category == "" {
		return PartialCount{}, errors.WithStack(errEmptyCategory)
	}

	partial := PartialCount{
		Category:    shard.Category,
		TokenCounts: make(map[string]int),
	}
	for _, document := range shard.Documents {
		partial.DocumentCount++
		for feature := range tok.Features(document) {
			partial.TokenCounts[feature]++
			partial.TokenTally++
		}
	}
	return partial, nil
}

// computePartial is swapped out by tests to inject shard failures.
var computePartial = ComputePartial

// TrainParallel computes every shard's counts concurrently, waits for all of
// them, then merges the results and finalizes. If any shard fails, the first
// failure is returned as a *ShardFailure and the model is left untouched.
func (c *Classifier) TrainParallel(ctx context.Context, shards []Shard) error {
	started := time.Now()

	partials, err := parallel.Map(ctx, c.executor, shards, c.computeShard)
	if err != nil {
		err = asShardFailure(err)
		c.logShardFailure(err, len(shards))
		return err
	}

	if err := c.MergeAll(partials); err != nil {
		return err
	}

	c.logger.Info().
		Int("shards", len(shards)).
		Dur("elapsed", time.Since(started)).
		Msg("parallel training complete")
	return nil
}

func (c *Classifier) computeShard(ctx context.Context, i int, shard Shard) (partial PartialCount, err error) {
	defer func() {
		if r := recover(); r != nil {
			panicErr := &parallel.PanicError{Value: r, Stack: string(debug.Stack())}
			err = newShardFailure(i, shard.Category, panicErr)
		}
	}()

	if err := ctx.Err(); err != nil {
		return PartialCount{}, newShardFailure(i, shard.Category, err)
	}
	partial, err = computePartial(c.tokenizer, shard)
	if err != nil {
		return PartialCount{}, newShardFailure(i, shard.Category, err)
	}
	return partial, nil
}

// MergeAll adds every partial count to the model and finalizes once. All
// partials are validated first; an invalid one is reported as a
// *ShardFailure and nothing is merged.
func (c *Classifier) MergeAll(partials []PartialCount) error {
	for i, partial := range partials {
		if err := validatePartial(partial); err != nil {
			return newShardFailure(i, partial.Category, err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, partial := range partials {
		mergePartial(c.categories.GetCategory(partial.Category), partial)
		c.documents += partial.DocumentCount
		for feature := range partial.TokenCounts {
			c.vocabulary[feature] = struct{}{}
		}
	}
	c.finalizeLocked()

	return nil
}

func validatePartial(partial PartialCount) error {
	if partial.Category == "" {
		return errors.WithStack(errEmptyCategory)
	}
	if partial.DocumentCount < 0 || partial.TokenTally < 0 {
		return errors.Wrapf(errInvalidCount, "documents=%d tally=%d", partial.DocumentCount, partial.TokenTally)
	}

	sum := 0
	for feature, count := range partial.TokenCounts {
		if feature == "" || count <= 0 {
			return errors.Wrapf(errInvalidCount, "token %q: %d", feature, count)
		}
		sum += count
	}
	if sum != partial.TokenTally {
		return errors.Wrapf(errTallyMismatch, "tally=%d sum=%d", partial.TokenTally, sum)
	}
	return nil
}

// mergePartial adds counts that validatePartial already accepted.
func mergePartial(cat *category.Category, partial PartialCount) {
	_ = cat.AddDocuments(partial.DocumentCount)
	for feature, count := range partial.TokenCounts {
		_ = cat.TrainToken(feature, count)
	}
}

// asShardFailure keeps shard failures as they are and attributes anything
// else, such as a recovered panic or a cancelled context, to an unknown shard.
func asShardFailure(err error) error {
	var failure *ShardFailure
	if errors.As(err, &failure) {
		return err
	}
	return newShardFailure(-1, "", err)
}

func (c *Classifier) logShardFailure(err error, shards int) {
	event := c.logger.Error().Err(err).Int("shards", shards)
	var failure *ShardFailure
	if errors.As(err, &failure) {
		event = event.EmbedObject(failure)
	}
	event.Msg("parallel training failed")
}
