package simplecms

import "context"

// PostType describes a registrable content type. Implementations supply the
// singular and plural keys the capability names derive from, plus a Register
// hook that runs once when the type is added to a Service (schema setup,
// default terms, extra hooks).
type PostType interface {
	// Key returns the singular type key (e.g., "book"). Used as the Post.Type
	// value and in the per-item capability names.
	Key() string

	// PluralKey returns the plural key (e.g., "books"). Used in the
	// collection capability names.
	PluralKey() string

	// Register is called once during Service.RegisterType, after the manager
	// exists but before capabilities are applied. Returning an error aborts
	// the registration.
	Register(ctx context.Context, mgr *TypeManager) error
}

// CapabilityOverrider is an optional interface a PostType can implement to
// replace individual entries of the default grant table.
type CapabilityOverrider interface {
	CapabilityOverrides() GrantTable
}

// BaseType is a ready-made PostType for configuration-defined types.
type BaseType struct {
	TypeKey   string
	Plural    string
	Overrides GrantTable

	// OnRegister, when set, runs as the type's Register hook.
	OnRegister func(ctx context.Context, mgr *TypeManager) error
}

// Key implements PostType.
func (t BaseType) Key() string { return t.TypeKey }

// PluralKey implements PostType. An empty Plural falls back to TypeKey+"s".
func (t BaseType) PluralKey() string {
	if t.Plural == "" {
		return t.TypeKey + "s"
	}
	return t.Plural
}

// Register implements PostType.
func (t BaseType) Register(ctx context.Context, mgr *TypeManager) error {
	if t.OnRegister == nil {
		return nil
	}
	return t.OnRegister(ctx, mgr)
}

// CapabilityOverrides implements CapabilityOverrider.
func (t BaseType) CapabilityOverrides() GrantTable { return t.Overrides }
