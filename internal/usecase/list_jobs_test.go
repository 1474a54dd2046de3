package usecase_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/ovr-platform/ovr-deploy/internal/domain/config"
	"github.com/ovr-platform/ovr-deploy/internal/domain/models"
	"github.com/ovr-platform/ovr-deploy/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListJobs(t *testing.T) {
	cfg := &config.RuntimeConfig{
		Network: &config.Network{Name: "mumbai"},
		Jobs: map[string]config.JobConfig{
			"deploy-mapping": {
				Contract: "OVRLandMapping",
				Args:     []any{"0x93C46aA4DdfD0413d95D0eF3c478982997cE9861"},
				Networks: map[string]config.JobNetworkConfig{
					"mumbai": {Args: []any{"0x624A4029dCc396B2d31a20eAFffd8fd118859aA0"}},
				},
			},
			"broken-upgrade": {Contract: "X", Mode: "proxy-upgrade"},
			"bad-mode":       {Contract: "Y", Mode: "beacon"},
		},
	}

	result, err := usecase.NewListJobs(cfg).Run(context.Background(), usecase.ListJobsParams{})
	require.NoError(t, err)

	assert.Equal(t, "mumbai", result.Network)
	require.Len(t, result.Jobs, 3)
	assert.Equal(t, []string{"bad-mode", "broken-upgrade", "deploy-mapping"},
		[]string{result.Jobs[0].Name, result.Jobs[1].Name, result.Jobs[2].Name})

	assert.Error(t, result.Jobs[0].Error)
	assert.Nil(t, result.Jobs[0].Request)
	assert.ErrorContains(t, result.Jobs[1].Error, "proxy address is required")

	mapping := result.Jobs[2]
	require.NoError(t, mapping.Error)
	assert.Equal(t, models.ModeDeploy, mapping.Request.Mode)
	assert.Equal(t, []any{"0x624A4029dCc396B2d31a20eAFffd8fd118859aA0"}, mapping.Request.ConstructorArgs)
}

func TestListNetworksStatus(t *testing.T) {
	localhost := &config.Network{Name: "localhost", RPCURL: "http://127.0.0.1:8545", ChainID: big.NewInt(31337), PrivateKey: "0x01", Local: true}
	cfg := &config.RuntimeConfig{
		Network: localhost,
		Networks: map[string]*config.Network{
			"localhost": localhost,
			"polygon":   {Name: "polygon", ChainID: big.NewInt(137), PrivateKey: "0x01"},
		},
	}

	result, err := usecase.NewListNetworks(cfg).Run(context.Background(), usecase.ListNetworksParams{})
	require.NoError(t, err)
	require.Len(t, result.Networks, 2)

	assert.Equal(t, "localhost", result.Networks[0].Name)
	assert.True(t, result.Networks[0].Active)
	assert.NoError(t, result.Networks[0].Error)
	assert.Equal(t, uint64(31337), result.Networks[0].ChainID)

	assert.Equal(t, "polygon", result.Networks[1].Name)
	assert.False(t, result.Networks[1].Active)
	assert.ErrorContains(t, result.Networks[1].Error, "rpc url not set")
}

func TestListArtifactsFilter(t *testing.T) {
	ctx := context.Background()
	registry := new(MockArtifactRegistry)
	registry.On("List", ctx).Return([]*models.Artifact{
		{Name: "IOVRLand"},
		{Name: "OVRLandMapping", Bytecode: []byte{0x60}},
		{Name: "OVRMarketplace", Bytecode: []byte{0x60}},
	}, nil)

	uc := usecase.NewListArtifacts(registry)

	result, err := uc.Run(ctx, usecase.ListArtifactsParams{Filter: "land"})
	require.NoError(t, err)
	assert.Len(t, result.Artifacts, 2)

	result, err = uc.Run(ctx, usecase.ListArtifactsParams{Filter: "land", DeployableOnly: true})
	require.NoError(t, err)
	require.Len(t, result.Artifacts, 1)
	assert.Equal(t, "OVRLandMapping", result.Artifacts[0].Name)
}

func TestSuggestNames(t *testing.T) {
	names := []string{"OVRLandExperience", "OVRLandMapping", "OVRMarketplace"}
	assert.Equal(t, []string{"OVRMarketplace"}, usecase.SuggestNames("OVRMarket", names))
	assert.Empty(t, usecase.SuggestNames("zzz", names))
	assert.Nil(t, usecase.SuggestNames("", names))
}
