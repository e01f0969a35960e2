package config

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/Mindburn-Labs/recaudit/pkg/audit"
	"github.com/Mindburn-Labs/recaudit/pkg/audit/remediation"
)

// SupportedProfileVersions is the profile format range this engine understands.
const SupportedProfileVersions = "^1.0.0"

// ErrInvalidProfile wraps every profile rejection.
var ErrInvalidProfile = errors.New("config: invalid policy profile")

// PolicyProfile overrides the built-in penalty policy for a jurisdiction or operator.
type PolicyProfile struct {
	Version           string             `yaml:"version" json:"version"`
	Name              string             `yaml:"name" json:"name"`
	Penalties         map[string]int64   `yaml:"penalties,omitempty" json:"penalties,omitempty"`
	ReferralThreshold int64              `yaml:"referral_threshold,omitempty" json:"referral_threshold,omitempty"`
	Remediation       []remediation.Rule `yaml:"remediation,omitempty" json:"remediation,omitempty"`
}

// Policy is a validated profile, ready to wire into the audit pipeline.
type Policy struct {
	Name              string
	Version           *semver.Version
	Penalties         audit.PenaltyTable
	ReferralThreshold int64
	Rules             []remediation.Rule
}

// DefaultPolicy returns the built-in policy.
func DefaultPolicy() *Policy {
	return &Policy{
		Name:              "default",
		Version:           semver.MustParse("1.0.0"),
		Penalties:         audit.DefaultPenaltyTable(),
		ReferralThreshold: audit.DefaultReferralThreshold,
		Rules:             remediation.DefaultRules(),
	}
}

// LoadProfile reads and resolves a YAML policy profile. An empty path yields the
// built-in policy.
func LoadProfile(path string) (*Policy, error) {
	if path == "" {
		return DefaultPolicy(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load profile %q: %w", path, err)
	}
	return ParseProfile(data)
}

// ParseProfile decodes a YAML profile and resolves it against the built-in policy.
func ParseProfile(data []byte) (*Policy, error) {
	var p PolicyProfile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: parse: %w", ErrInvalidProfile, err)
	}
	return p.Resolve()
}

// Resolve applies the profile over the built-in policy and validates the result.
func (p PolicyProfile) Resolve() (*Policy, error) {
	if p.Version == "" {
		return nil, fmt.Errorf("%w: version is required", ErrInvalidProfile)
	}
	v, err := semver.NewVersion(p.Version)
	if err != nil {
		return nil, fmt.Errorf("%w: version %q: %w", ErrInvalidProfile, p.Version, err)
	}
	constraint, err := semver.NewConstraint(SupportedProfileVersions)
	if err != nil {
		return nil, err
	}
	if !constraint.Check(v) {
		return nil, fmt.Errorf("%w: version %s outside supported range %s", ErrInvalidProfile, v, SupportedProfileVersions)
	}

	policy := DefaultPolicy()
	policy.Version = v
	if p.Name != "" {
		policy.Name = p.Name
	}

	names := make([]string, 0, len(p.Penalties))
	for name := range p.Penalties {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		r, err := audit.ParseResult(name)
		if err != nil {
			return nil, fmt.Errorf("%w: penalties: %w", ErrInvalidProfile, err)
		}
		policy.Penalties[r] = p.Penalties[name]
	}
	if err := policy.Penalties.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidProfile, err)
	}

	if p.ReferralThreshold < 0 {
		return nil, fmt.Errorf("%w: referral_threshold must not be negative", ErrInvalidProfile)
	}
	if p.ReferralThreshold > 0 {
		policy.ReferralThreshold = p.ReferralThreshold
	}

	if len(p.Remediation) > 0 {
		// Rules must compile at load.
		if _, err := remediation.NewEngine(p.Remediation); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidProfile, err)
		}
		policy.Rules = append([]remediation.Rule(nil), p.Remediation...)
	}
	return policy, nil
}
