package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bimakw/volume-tracker/internal/domain/entities"
)

type recordingCommitter struct {
	mu        sync.Mutex
	committed []int64
	err       map[int64]error
}

func (r *recordingCommitter) commit(ctx context.Context, token entities.Token, quote entities.VolumeQuote, day Day) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.err[token.ID]; err != nil {
		return err
	}
	r.committed = append(r.committed, token.ID)
	return nil
}

func tokensN(n int) []entities.Token {
	tokens := make([]entities.Token, n)
	for i := range tokens {
		tokens[i] = baseToken()
		tokens[i].ID = int64(i + 1)
	}
	return tokens
}

func okFetch(ctx context.Context, token entities.Token) (*entities.VolumeQuote, error) {
	return &entities.VolumeQuote{VolumeToday: decPtr("10")}, nil
}

func TestBatch_FetchFailureDoesNotAbort(t *testing.T) {
	committer := &recordingCommitter{}
	batch := &Batch{
		Fetch: func(ctx context.Context, token entities.Token) (*entities.VolumeQuote, error) {
			if token.ID == 3 {
				return nil, errors.New("upstream 502")
			}
			return okFetch(ctx, token)
		},
		Commit: committer.commit,
		Logger: zap.NewNop(),
	}

	result := batch.Run(context.Background(), tokensN(5), testDay)

	assert.Equal(t, 4, result.Updated)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 5, result.Total)
	assert.Equal(t, []int64{1, 2, 4, 5}, committer.committed)
}

func TestBatch_NilQuoteCountsAsFailure(t *testing.T) {
	committer := &recordingCommitter{}
	batch := &Batch{
		Fetch: func(ctx context.Context, token entities.Token) (*entities.VolumeQuote, error) {
			if token.ID == 1 {
				return nil, nil
			}
			return okFetch(ctx, token)
		},
		Commit: committer.commit,
	}

	result := batch.Run(context.Background(), tokensN(2), testDay)

	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 1, result.Failed)
}

func TestBatch_SkipsArchived(t *testing.T) {
	tokens := tokensN(3)
	tokens[1].Status = entities.StatusArchived

	var fetched []int64
	committer := &recordingCommitter{}
	batch := &Batch{
		Fetch: func(ctx context.Context, token entities.Token) (*entities.VolumeQuote, error) {
			fetched = append(fetched, token.ID)
			return okFetch(ctx, token)
		},
		Commit: committer.commit,
	}

	result := batch.Run(context.Background(), tokens, testDay)

	assert.Equal(t, []int64{1, 3}, fetched)
	assert.Equal(t, 2, result.Updated)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 3, result.Total)
}

func TestBatch_CommitFailureContinues(t *testing.T) {
	committer := &recordingCommitter{err: map[int64]error{1: entities.ErrTokenArchived}}
	batch := &Batch{Fetch: okFetch, Commit: committer.commit}

	result := batch.Run(context.Background(), tokensN(2), testDay)

	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, []int64{2}, committer.committed)
}

func TestBatch_PanicInFetchIsContained(t *testing.T) {
	committer := &recordingCommitter{}
	batch := &Batch{
		Fetch: func(ctx context.Context, token entities.Token) (*entities.VolumeQuote, error) {
			if token.ID == 1 {
				panic("boom")
			}
			return okFetch(ctx, token)
		},
		Commit: committer.commit,
	}

	result := batch.Run(context.Background(), tokensN(2), testDay)

	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 1, result.Failed)
}

func TestBatch_FetchTimeoutApplied(t *testing.T) {
	committer := &recordingCommitter{}
	batch := &Batch{
		Fetch: func(ctx context.Context, token entities.Token) (*entities.VolumeQuote, error) {
			if token.ID == 1 {
				<-ctx.Done()
				return nil, ctx.Err()
			}
			return okFetch(ctx, token)
		},
		Commit:       committer.commit,
		FetchTimeout: 20 * time.Millisecond,
	}

	result := batch.Run(context.Background(), tokensN(2), testDay)

	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 1, result.Failed)
}

func TestBatch_DelayBetweenTokens(t *testing.T) {
	var stamps []time.Time
	batch := &Batch{
		Fetch: func(ctx context.Context, token entities.Token) (*entities.VolumeQuote, error) {
			stamps = append(stamps, time.Now())
			return okFetch(ctx, token)
		},
		Commit: (&recordingCommitter{}).commit,
		Delay:  30 * time.Millisecond,
	}

	batch.Run(context.Background(), tokensN(3), testDay)

	require.Len(t, stamps, 3)
	for i := 1; i < len(stamps); i++ {
		assert.GreaterOrEqual(t, stamps[i].Sub(stamps[i-1]), 30*time.Millisecond)
	}
}

func TestBatch_CancelStopsBetweenTokens(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	batch := &Batch{
		Fetch: func(fctx context.Context, token entities.Token) (*entities.VolumeQuote, error) {
			cancel()
			return okFetch(fctx, token)
		},
		Commit: (&recordingCommitter{}).commit,
		Delay:  time.Hour,
	}

	result := batch.Run(ctx, tokensN(3), testDay)

	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 3, result.Total)
}

func TestIsSoftFailure(t *testing.T) {
	assert.True(t, IsSoftFailure(entities.ErrMarketDataUnavailable))
	assert.True(t, IsSoftFailure(errors.Join(errors.New("ctx"), entities.ErrSymbolNotFound)))
	assert.False(t, IsSoftFailure(errors.New("connection refused")))
}
