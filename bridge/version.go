package bridge

import (
	"golang.org/x/mod/semver"

	"github.com/wippyai/shard-runtime/errors"
)

// ProtocolVersion is the boundary protocol implemented by Bridge.
const ProtocolVersion = "v2.0.0"

// Protocol selects the calling convention a host speaks.
type Protocol int

const (
	// ProtocolErrorSlot is the current protocol: every fallible call carries
	// an ErrorSlot.
	ProtocolErrorSlot Protocol = iota
	// ProtocolLegacy is the v1 protocol without error slots. Failures cannot
	// be reported to the host.
	ProtocolLegacy
)

func (p Protocol) String() string {
	switch p {
	case ProtocolErrorSlot:
		return "error-slot"
	case ProtocolLegacy:
		return "legacy"
	default:
		return "unknown"
	}
}

// Negotiate picks the protocol for a host announcing hostVersion. v1 hosts
// get the legacy shim; v2 hosts up to ProtocolVersion get the current one.
func Negotiate(hostVersion string) (Protocol, error) {
	if !semver.IsValid(hostVersion) {
		return 0, errors.VersionMismatch(hostVersion, ProtocolVersion)
	}
	switch semver.Major(hostVersion) {
	case "v1":
		Logger().Warn("host negotiated the deprecated legacy protocol")
		return ProtocolLegacy, nil
	case semver.Major(ProtocolVersion):
		if semver.Compare(semver.Canonical(hostVersion), ProtocolVersion) > 0 {
			return 0, errors.VersionMismatch(hostVersion, ProtocolVersion)
		}
		return ProtocolErrorSlot, nil
	default:
		return 0, errors.VersionMismatch(hostVersion, ProtocolVersion)
	}
}
