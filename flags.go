package sstfs

// ObjectFlags are set when an object is created through the storage service
// and are stored alongside its data.
type ObjectFlags uint32

const (
	// FlagWriteOnce makes an object immutable: once set, it can't be replaced
	// or removed.
	FlagWriteOnce = ObjectFlags(1 << iota)
	// FlagNoConfidentiality lets the service store the object without
	// encryption even if a sealer is configured.
	FlagNoConfidentiality
	// FlagNoReplayProtection is accepted for compatibility and has no effect.
	FlagNoReplayProtection
)

const FlagNone = ObjectFlags(0)

// SupportedFlags is the mask of every flag the storage service understands.
const SupportedFlags = FlagWriteOnce | FlagNoConfidentiality | FlagNoReplayProtection

// WriteOnce returns true if the object can't be modified after creation.
func (flags ObjectFlags) WriteOnce() bool {
	return flags&FlagWriteOnce != 0
}

// Confidential returns true if the object must be stored encrypted when the
// service has a sealer.
func (flags ObjectFlags) Confidential() bool {
	return flags&FlagNoConfidentiality == 0
}
