package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"edubot/internal/config"
	"edubot/internal/model"
	"edubot/internal/repository"
	"edubot/pkg/cache"
	"edubot/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestGetActiveCreatesDefaultOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	bot := config.DefaultBotID

	first, err := f.instructions.GetActive(ctx, bot)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultInstruction, first.Instruction)
	assert.Equal(t, UpdatedBySystem, first.UpdatedBy)
	assert.True(t, first.IsActive)

	second, err := f.instructions.GetActive(ctx, bot)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	// bypass the cache to prove the store holds exactly one row
	uncached := NewInstructionService(f.instrRepo, cache.NewMemory(), f.publisher, "other", 0)
	third, err := uncached.GetActive(ctx, bot)
	require.NoError(t, err)
	assert.Equal(t, first.ID, third.ID)

	history, err := f.instrRepo.ListByBot(ctx, bot, 10)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestSetActiveReplacesAndInvalidatesCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	bot := config.DefaultBotID

	_, err := f.instructions.GetActive(ctx, bot)
	require.NoError(t, err)

	updated, err := f.instructions.SetActive(ctx, bot, "Responda apenas em inglês.", "")
	require.NoError(t, err)
	assert.Equal(t, UpdatedByAdmin, updated.UpdatedBy)
	assert.True(t, updated.IsActive)

	got, err := f.instructions.GetActive(ctx, bot)
	require.NoError(t, err)
	assert.Equal(t, "Responda apenas em inglês.", got.Instruction)

	active, err := f.instrRepo.CountActive(ctx, bot)
	require.NoError(t, err)
	assert.EqualValues(t, 1, active)

	history, err := f.instructions.History(ctx, bot, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "Responda apenas em inglês.", history[0].Instruction)

	assert.Equal(t, []events.Type{events.InstructionUpdated}, f.publisher.types())
}

func TestSetActiveRejectsBlankText(t *testing.T) {
	f := newFixture(t)
	_, err := f.instructions.SetActive(context.Background(), config.DefaultBotID, "   ", "admin")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, f.publisher.types())
}

// gatedRepo holds the first FindActive result until release is closed.
type gatedRepo struct {
	repository.SystemInstructionRepository
	once    sync.Once
	reached chan struct{}
	release chan struct{}
}

func (r *gatedRepo) FindActive(ctx context.Context, botID string) (*model.SystemInstruction, error) {
	si, err := r.SystemInstructionRepository.FindActive(ctx, botID)
	r.once.Do(func() {
		close(r.reached)
		<-r.release
	})
	return si, err
}

func TestGetActiveDoesNotCacheInstructionReplacedMidRead(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	bot := config.DefaultBotID

	require.NoError(t, f.instrRepo.ReplaceActive(ctx, &model.SystemInstruction{BotID: bot, Instruction: "v1", UpdatedBy: UpdatedByAdmin}))

	repo := &gatedRepo{
		SystemInstructionRepository: f.instrRepo,
		reached:                     make(chan struct{}),
		release:                     make(chan struct{}),
	}
	svc := NewInstructionService(repo, cache.NewMemory(), f.publisher, config.DefaultInstruction, 0)

	var g errgroup.Group
	g.Go(func() error {
		si, err := svc.GetActive(ctx, bot)
		if err != nil {
			return err
		}
		if si.Instruction != "v1" {
			return fmt.Errorf("in-flight read returned %q", si.Instruction)
		}
		return nil
	})

	<-repo.reached
	_, err := svc.SetActive(ctx, bot, "v2", "")
	require.NoError(t, err)
	close(repo.release)
	require.NoError(t, g.Wait())

	got, err := svc.GetActive(ctx, bot)
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Instruction)
}

func TestConcurrentSetActiveLeavesOneReadableInstruction(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	bot := config.DefaultBotID

	const writers = 8
	written := make([]string, writers)
	var g errgroup.Group
	for i := 0; i < writers; i++ {
		i := i
		written[i] = fmt.Sprintf("instrução %d", i)
		g.Go(func() error {
			_, err := f.instructions.SetActive(ctx, bot, written[i], "")
			return err
		})
	}
	require.NoError(t, g.Wait())

	active, err := f.instrRepo.CountActive(ctx, bot)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, active, int64(1))

	got, err := f.instructions.GetActive(ctx, bot)
	require.NoError(t, err)
	assert.Contains(t, written, got.Instruction)

	newest, err := f.instrRepo.FindActive(ctx, bot)
	require.NoError(t, err)
	assert.Equal(t, newest.ID, got.ID)
}

func TestConcurrentFirstGetActiveConverges(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	bot := config.DefaultBotID

	const readers = 8
	ids := make([]uint, readers)
	var g errgroup.Group
	for i := 0; i < readers; i++ {
		i := i
		g.Go(func() error {
			si, err := f.instructions.GetActive(ctx, bot)
			if err != nil {
				return err
			}
			ids[i] = si.ID
			return nil
		})
	}
	require.NoError(t, g.Wait())

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	history, err := f.instrRepo.ListByBot(ctx, bot, 10)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}
