package devseed

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/target/adsync/internal/domain/model"
	"github.com/target/adsync/internal/mocks"
)

func TestDefaultIntegrationsAreValid(t *testing.T) {
	seen := map[string]bool{}
	for _, req := range DefaultIntegrations() {
		require.NoError(t, req.Validate(), req.Key.String())
		assert.False(t, seen[req.Key.String()], "duplicate key %s", req.Key)
		seen[req.Key.String()] = true
	}
}

func TestRun_CountsCreatedAndUpdated(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockIntegrationRepository(ctrl)
	defaults := DefaultIntegrations()

	existing := defaults[0].Key
	store.EXPECT().Get(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, key model.IntegrationKey) (*model.Integration, error) {
			if key == existing {
				return &model.Integration{Key: key}, nil
			}
			return nil, nil
		}).Times(len(defaults))
	store.EXPECT().Upsert(gomock.Any(), gomock.Any()).Return(&model.Integration{}, nil).Times(len(defaults))

	res, err := Run(context.Background(), store, nil)
	require.NoError(t, err)
	assert.Equal(t, Result{Created: len(defaults) - 1, Updated: 1}, res)
}

func TestRun_ReportsFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockIntegrationRepository(ctrl)
	defaults := DefaultIntegrations()

	store.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, nil).Times(len(defaults))
	gomock.InOrder(
		store.EXPECT().Upsert(gomock.Any(), gomock.Any()).Return(nil, errors.New("constraint violation")),
		store.EXPECT().Upsert(gomock.Any(), gomock.Any()).Return(&model.Integration{}, nil).Times(len(defaults)-1),
	)

	res, err := Run(context.Background(), store, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 seed errors")
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, len(defaults)-1, res.Created)
}

func TestRun_RequiresStore(t *testing.T) {
	_, err := Run(context.Background(), nil, nil)
	require.Error(t, err)
}
