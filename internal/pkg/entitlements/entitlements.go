package entitlements

import (
	"github.com/ManuelReschke/BlockFox/app/models"
)

type Feature string

const (
	FeatureNativeToken  Feature = "nativeToken"
	FeatureTotalSupply  Feature = "totalSupply"
	FeatureBranding     Feature = "branding"
	FeatureCustomDomain Feature = "customDomain"
)

// Allows reports whether a capability set unlocks the feature.
func Allows(caps models.PlanCapabilities, f Feature) bool {
	switch f {
	case FeatureNativeToken:
		return caps.NativeToken
	case FeatureTotalSupply:
		return caps.TotalSupply
	case FeatureBranding:
		return caps.Branding
	case FeatureCustomDomain:
		return caps.CustomDomain
	default:
		return false
	}
}

// ExplorerAllows checks a feature against the explorer's current plan.
func ExplorerAllows(e *models.Explorer, f Feature) bool {
	return Allows(e.Capabilities(), f)
}

// PublicWorkspace is the part of the workspace an explorer frontend needs.
type PublicWorkspace struct {
	Name               string `json:"name"`
	NetworkID          string `json:"networkId"`
	RPCServer          string `json:"rpcServer"`
	Tracing            bool   `json:"tracing"`
	DataRetentionLimit int    `json:"dataRetentionLimit"`
}

// PublicExplorer is the capability-filtered explorer served on public lookups.
type PublicExplorer struct {
	ID                  uint                    `json:"id"`
	Name                string                  `json:"name"`
	Slug                string                  `json:"slug"`
	ChainID             int64                   `json:"chainId"`
	Token               string                  `json:"token"`
	TotalSupply         string                  `json:"totalSupply,omitempty"`
	L1Explorer          string                  `json:"l1Explorer,omitempty"`
	GasAnalyticsEnabled bool                    `json:"gasAnalyticsEnabled"`
	Branding            models.ExplorerBranding `json:"themes"`
	Domains             []string                `json:"domains"`
	Workspace           *PublicWorkspace        `json:"workspace,omitempty"`
	Capabilities        models.PlanCapabilities `json:"capabilities"`
}

// PublicView strips what the explorer's plan does not pay for: the token
// symbol falls back to ether, total supply is dropped and branding is reset.
func PublicView(e *models.Explorer) *PublicExplorer {
	caps := e.Capabilities()
	out := &PublicExplorer{
		ID:                  e.ID,
		Name:                e.Name,
		Slug:                e.Slug,
		ChainID:             e.ChainID,
		Token:               models.DefaultNativeToken,
		L1Explorer:          e.L1Explorer,
		GasAnalyticsEnabled: e.GasAnalyticsEnabled,
		Domains:             []string{},
		Capabilities:        caps,
	}
	if caps.NativeToken && e.Token != "" {
		out.Token = e.Token
	}
	if caps.TotalSupply {
		out.TotalSupply = e.TotalSupply
	}
	if caps.Branding {
		out.Branding = e.Branding.Data()
	}
	if caps.CustomDomain {
		for _, d := range e.Domains {
			out.Domains = append(out.Domains, d.Domain)
		}
	}
	if e.Workspace != nil {
		out.Workspace = &PublicWorkspace{
			Name:               e.Workspace.Name,
			NetworkID:          e.Workspace.NetworkID,
			RPCServer:          e.Workspace.RPCServer,
			Tracing:            e.Workspace.Tracing,
			DataRetentionLimit: e.Workspace.DataRetentionLimit,
		}
	}
	return out
}
