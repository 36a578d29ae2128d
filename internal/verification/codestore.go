package verification

import "time"

const (
	// DefaultCodeTTL is how long an issued code stays usable.
	DefaultCodeTTL = 600 * time.Second
	// DefaultResendCooldown is the minimum interval between code issuances
	// for the same identity.
	DefaultResendCooldown = 60 * time.Second

	codeKeyPrefix   = "verification_code:"
	resendKeyPrefix = "verification_resend:"
)

// CodeStore keeps one live code and one resend marker per identity in an
// ephemeral TTL store. Identity keys are used literally; callers canonicalize
// (e.g. lower-case emails) before use if they want that semantic.
type CodeStore struct {
	kv             Store
	codeTTL        time.Duration
	resendCooldown time.Duration
}

func NewCodeStore(kv Store, codeTTL, resendCooldown time.Duration) *CodeStore {
	if codeTTL <= 0 {
		codeTTL = DefaultCodeTTL
	}
	if resendCooldown <= 0 {
		resendCooldown = DefaultResendCooldown
	}
	return &CodeStore{kv: kv, codeTTL: codeTTL, resendCooldown: resendCooldown}
}

// StoreCode writes code for identity, replacing any prior code. The old code
// becomes unusable immediately.
func (c *CodeStore) StoreCode(identity, code string) {
	c.kv.Put(codeKeyPrefix+identity, code, c.codeTTL)
}

// FetchCode returns the live code for identity without consuming it.
func (c *CodeStore) FetchCode(identity string) (string, bool) {
	return c.kv.Get(codeKeyPrefix + identity)
}

// ConsumeCode atomically removes and returns the live code for identity.
// Exactly one of any set of concurrent consumers observes the code.
func (c *CodeStore) ConsumeCode(identity string) (string, bool) {
	return c.kv.GetDel(codeKeyPrefix + identity)
}

// CanResend reports whether the cool-down for identity has elapsed.
func (c *CodeStore) CanResend(identity string) bool {
	_, live := c.kv.Get(resendKeyPrefix + identity)
	return !live
}

// MarkSent starts the resend cool-down for identity. The marker's TTL is
// independent of the code's.
func (c *CodeStore) MarkSent(identity string) {
	c.kv.Put(resendKeyPrefix+identity, "1", c.resendCooldown)
}
