package lifecycle

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/otelfleet/pkghooks/pkg/hookerr"
)

// Verb is the first argument a package manager passes to a removal hook.
type Verb string

const (
	VerbPurge         Verb = "purge"
	VerbRemove        Verb = "remove"
	VerbUpgrade       Verb = "upgrade"
	VerbFailedUpgrade Verb = "failed-upgrade"
	VerbAbortInstall  Verb = "abort-install"
	VerbAbortUpgrade  Verb = "abort-upgrade"
	VerbDisappear     Verb = "disappear"
)

// Verbs lists every verb the removal hook accepts.
var Verbs = []Verb{
	VerbPurge,
	VerbRemove,
	VerbUpgrade,
	VerbFailedUpgrade,
	VerbAbortInstall,
	VerbAbortUpgrade,
	VerbDisappear,
}

// ParseVerb accepts exactly the known verbs. Case and whitespace are
// significant: package managers pass them verbatim.
func ParseVerb(s string) (Verb, error) {
	v := Verb(s)
	if !lo.Contains(Verbs, v) {
		return "", fmt.Errorf("%w %q (expected one of %v)", hookerr.ErrUnknownVerb, s, Verbs)
	}
	return v, nil
}

// Purges reports whether the verb removes the agent's runtime artifacts.
// Every other verb leaves the package installed in some form, or marks an
// install that never completed, so generated state is kept.
func (v Verb) Purges() bool {
	return v == VerbPurge
}

func (v Verb) String() string {
	return string(v)
}
