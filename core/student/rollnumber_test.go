package student

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
)

type takenRollNumbers struct {
	Repository
	taken map[string]bool
}

func (repo takenRollNumbers) RollNumberExists(_ context.Context, rollNumber string, _ ...core.DBExecutor) (bool, error) {
	return repo.taken[rollNumber], nil
}

func mockSuffixes(t *testing.T, suffixes ...int) {
	t.Helper()
	i := 0
	rollNumberSuffix = func() (int, error) {
		n := suffixes[i%len(suffixes)]
		i++
		return n, nil
	}
	t.Cleanup(func() { rollNumberSuffix = randomSuffix })
}

func TestService_generateRollNumber(t *testing.T) {
	svc := &Service{repo: takenRollNumbers{taken: map[string]bool{"AB1000": true, "AB1001": true}}}
	ctx := context.Background()

	t.Run("retries taken values", func(t *testing.T) {
		mockSuffixes(t, 1000, 1001, 1002)
		rn, err := svc.generateRollNumber(ctx, "ama", "bora")
		require.NoError(t, err)
		assert.Equal(t, "AB1002", rn)
	})

	t.Run("gives up", func(t *testing.T) {
		mockSuffixes(t, 1000, 1001)
		_, err := svc.generateRollNumber(ctx, "Ama", "Bora")
		assert.Equal(t, errRollNumberExhausted, err)
	})

	t.Run("blank names", func(t *testing.T) {
		mockSuffixes(t, 4321)
		rn, err := svc.generateRollNumber(ctx, " ", "")
		require.NoError(t, err)
		assert.Equal(t, "4321", rn)
	})
}

func TestRandomSuffix(t *testing.T) {
	for i := 0; i < 200; i++ {
		n, err := randomSuffix()
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 1000)
		assert.LessOrEqual(t, n, 9999)
	}
}
