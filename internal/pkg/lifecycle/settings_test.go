package lifecycle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ManuelReschke/BlockFox/app/models"
	"github.com/ManuelReschke/BlockFox/internal/pkg/apperr"
)

func customDomainExplorer() *models.Explorer {
	return explorerFixture(&models.ExplorerSubscription{ID: 5, StripePlan: planWith("team", models.PlanCapabilities{CustomDomain: true, Branding: true})})
}

func TestAddDomain(t *testing.T) {
	tests := []struct {
		name     string
		explorer *models.Explorer
		domain   string
		exists   bool
		kind     apperr.Kind
	}{
		{"invalid domain", customDomainExplorer(), "not a domain", false, apperr.KindInvalidInput},
		{"plan without custom domains", explorerFixture(limitedSub(0, 0)), "explorer.acme.org", false, apperr.KindForbidden},
		{"platform subdomain", customDomainExplorer(), "acme.tryblockfox.com", false, apperr.KindConflict},
		{"taken", customDomainExplorer(), "explorer.acme.org", true, apperr.KindConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.repos.Explorer.On("GetByIDForUser", uint(1), uint(10)).Return(tt.explorer, nil)
			f.repos.Explorer.On("DomainExists", mock.Anything).Return(tt.exists, nil)

			_, err := f.svc.AddDomain(context.Background(), user, 10, tt.domain)
			assert.Equal(t, tt.kind, apperr.KindOf(err))
			f.repos.Explorer.AssertNotCalled(t, "CreateDomain", mock.Anything)
		})
	}
}

func TestAddDomainNormalizesAndCreates(t *testing.T) {
	f := newFixture()
	f.repos.Explorer.On("GetByIDForUser", uint(1), uint(10)).Return(customDomainExplorer(), nil)
	f.repos.Explorer.On("DomainExists", "explorer.acme.org").Return(false, nil)
	f.repos.Explorer.On("CreateDomain", mock.MatchedBy(func(d *models.ExplorerDomain) bool {
		return d.ExplorerID == 10 && d.Domain == "explorer.acme.org"
	})).Return(nil)

	d, err := f.svc.AddDomain(context.Background(), user, 10, " https://Explorer.Acme.org/ ")
	require.NoError(t, err)
	assert.Equal(t, "explorer.acme.org", d.Domain)
	f.repos.AssertExpectations(t)
}

func TestRemoveDomain(t *testing.T) {
	f := newFixture()
	f.repos.Explorer.On("GetByIDForUser", uint(1), uint(10)).Return(customDomainExplorer(), nil)
	f.repos.Explorer.On("DeleteDomain", uint(10), uint(4)).Return(int64(1), nil)
	f.repos.Explorer.On("DeleteDomain", uint(10), uint(5)).Return(int64(0), nil)

	require.NoError(t, f.svc.RemoveDomain(context.Background(), user, 10, 4))
	assert.True(t, apperr.Is(f.svc.RemoveDomain(context.Background(), user, 10, 5), apperr.KindNotFound))
}

func TestUpdateBranding(t *testing.T) {
	f := newFixture()
	f.repos.Explorer.On("GetByIDForUser", uint(1), uint(10)).Return(customDomainExplorer(), nil).Once()
	f.repos.Explorer.On("UpdateFields", uint(10), mock.MatchedBy(func(fields map[string]interface{}) bool {
		_, ok := fields["branding"]
		return ok && len(fields) == 1
	})).Return(nil)

	branding := models.ExplorerBranding{
		Light: map[string]string{"primary": "#3D95CE"},
		Links: []models.ExplorerLink{{Name: "Docs", URL: "https://docs.acme.org"}},
	}
	got, err := f.svc.UpdateBranding(context.Background(), user, 10, branding)
	require.NoError(t, err)
	assert.Equal(t, "#3D95CE", got.Branding.Data().Light["primary"])

	f.repos.Explorer.On("GetByIDForUser", uint(1), uint(11)).Return(explorerFixture(limitedSub(0, 0)), nil)
	_, err = f.svc.UpdateBranding(context.Background(), user, 11, branding)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	_, err = f.svc.UpdateBranding(context.Background(), user, 10, models.ExplorerBranding{Links: []models.ExplorerLink{{Name: "x", URL: "not a url"}}})
	assert.True(t, apperr.Is(err, apperr.KindInvalidInput))
}

func TestSetBrandingAsset(t *testing.T) {
	f := newFixture()
	f.repos.Explorer.On("GetByIDForUser", uint(1), uint(10)).Return(customDomainExplorer(), nil)
	f.repos.Explorer.On("UpdateFields", uint(10), mock.Anything).Return(nil)

	got, err := f.svc.SetBrandingAsset(context.Background(), user, 10, "favicon", "https://cdn/acme/favicon.png")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/acme/favicon.png", got.Branding.Data().Favicon)

	_, err = f.svc.SetBrandingAsset(context.Background(), user, 10, "banner", "x")
	assert.True(t, apperr.Is(err, apperr.KindInvalidInput))
}

func TestUpdateSettingsWorkspaceChange(t *testing.T) {
	f := newFixture()
	f.repos.Explorer.On("GetByIDForUser", uint(1), uint(10)).Return(explorerFixture(nil), nil)
	f.repos.Workspace.On("GetByNameForUser", uint(1), "missing").Return(nil, gorm.ErrRecordNotFound)
	f.repos.Workspace.On("GetByNameForUser", uint(1), "taken").Return(&models.Workspace{ID: 4, Explorer: &models.Explorer{ID: 11}}, nil)
	f.repos.Workspace.On("GetByNameForUser", uint(1), "spare").Return(&models.Workspace{ID: 5}, nil)
	f.repos.Explorer.On("UpdateFields", uint(10), map[string]interface{}{"workspace_id": uint(5), "name": "Renamed"}).Return(nil)

	_, err := f.svc.UpdateSettings(context.Background(), user, 10, SettingsInput{Workspace: strPtr("missing")})
	assert.True(t, apperr.Is(err, apperr.KindInvalidInput))

	_, err = f.svc.UpdateSettings(context.Background(), user, 10, SettingsInput{Workspace: strPtr("taken")})
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	_, err = f.svc.UpdateSettings(context.Background(), user, 10, SettingsInput{Workspace: strPtr("spare"), Name: strPtr("Renamed")})
	require.NoError(t, err)
	f.repos.AssertExpectations(t)
}

func TestUpdateSettingsValidation(t *testing.T) {
	f := newFixture()

	_, err := f.svc.UpdateSettings(context.Background(), user, 10, SettingsInput{TotalSupply: strPtr("lots")})
	assert.True(t, apperr.Is(err, apperr.KindInvalidInput))
	f.repos.Explorer.AssertNotCalled(t, "GetByIDForUser", mock.Anything, mock.Anything)
}

func TestUpdateSettingsNothingToChange(t *testing.T) {
	f := newFixture()
	e := explorerFixture(nil)
	f.repos.Explorer.On("GetByIDForUser", uint(1), uint(10)).Return(e, nil)

	got, err := f.svc.UpdateSettings(context.Background(), user, 10, SettingsInput{})
	require.NoError(t, err)
	assert.Same(t, e, got)
	f.repos.Explorer.AssertNotCalled(t, "UpdateFields", mock.Anything, mock.Anything)
}
