package redirect

import (
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"
)

// ErrInvalidRule is returned by [Install] for rules that are missing
// fields or carry malformed values.
var ErrInvalidRule = errors.New("invalid redirect rule")

// Rule redirects every version of an assembly to a single target version.
type Rule struct {
	// Simple name of the assembly.
	AssemblyName string
	// Hex-encoded public key token of the target.
	PublicKeyToken string
	TargetVersion  Version
}

func (r Rule) String() string {
	return fmt.Sprintf("%v (%v) -> %v", r.AssemblyName, r.PublicKeyToken, r.TargetVersion)
}

// Rewrite returns req with its version replaced by the rule's target
// version, its public key token replaced by token, and its culture set
// to the invariant culture.
func Rewrite(req AssemblyName, rule Rule, token []byte) AssemblyName {
	res := req
	v := rule.TargetVersion
	res.Version = &v
	res.PublicKeyToken = slices.Clone(token)
	if res.PublicKeyToken == nil {
		res.PublicKeyToken = []byte{}
	}
	res.Culture = InvariantCulture
	res.HasCulture = true
	res.Extra = slices.Clone(req.Extra)
	return res
}

type redirectHandler struct {
	reg   *Registry
	rule  Rule
	token []byte
}

func (h *redirectHandler) Match(req Request) bool {
	an, err := ParseAssemblyName(req.Name)
	if err != nil {
		return false
	}
	return an.Name == h.rule.AssemblyName
}

func (h *redirectHandler) Resolve(req Request) (Assembly, error) {
	an, err := ParseAssemblyName(req.Name)
	if err != nil {
		return nil, err
	}
	requesting := req.RequestingAssembly
	if requesting == "" {
		requesting = "(unknown)"
	}
	h.reg.Logger().Info("redirecting assembly load",
		zap.String("request", req.Name),
		zap.String("requestedBy", requesting),
	)
	target := Rewrite(an, h.rule, h.token)
	loader := h.reg.Loader()
	if loader == nil {
		return nil, ErrNoLoader
	}
	return loader.Load(target)
}

// Install registers a run-once handler on reg that redirects the first
// load request for rule.AssemblyName to the rule's target identity.
//
// Requests for other assemblies are left to other handlers, and the
// handler stays registered until a matching request arrives.
func Install(reg *Registry, rule Rule) (*Registration, error) {
	if rule.AssemblyName == "" {
		return nil, fmt.Errorf("%w: empty assembly name", ErrInvalidRule)
	}
	if rule.PublicKeyToken == "" {
		return nil, fmt.Errorf("%w: %v: empty public key token", ErrInvalidRule, rule.AssemblyName)
	}
	token, err := ParsePublicKeyToken(rule.PublicKeyToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v: %w", ErrInvalidRule, rule.AssemblyName, err)
	}
	if !rule.TargetVersion.valid() {
		return nil, fmt.Errorf("%w: %v: invalid target version %v", ErrInvalidRule, rule.AssemblyName, rule.TargetVersion)
	}

	reg.Logger().Debug("will redirect",
		zap.String("assembly", rule.AssemblyName),
		zap.String("publicKeyToken", rule.PublicKeyToken),
		zap.Stringer("version", rule.TargetVersion),
	)
	return reg.Register(&redirectHandler{
		reg:   reg,
		rule:  rule,
		token: token,
	}, Once()), nil
}

// Applying logs that the redirects read from source are about to be
// installed on reg. Generated code calls it before its Install calls.
func Applying(reg *Registry, source string) {
	reg.Logger().Info("applying binding redirects", zap.String("source", source))
}

// MustInstall is like [Install], but panics on error.
func MustInstall(reg *Registry, rule Rule) *Registration {
	r, err := Install(reg, rule)
	if err != nil {
		panic(err)
	}
	return r
}
