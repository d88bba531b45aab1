package movement

// Relay is a PositionSource fed by the caller's own event loop. Deliver and
// Fail must run on the same goroutine as the subscriber.
type Relay struct {
	Supported bool

	next  uint64
	id    uint64
	onFix func(Fix)
	onErr func(error)
}

func NewRelay(supported bool) *Relay { return &Relay{Supported: supported} }

func (r *Relay) Subscribe(onFix func(Fix), onErr func(error)) (Subscription, error) {
	if !r.Supported {
		return nil, ErrUnsupported
	}
	r.next++
	r.id = r.next
	r.onFix = onFix
	r.onErr = onErr
	return relaySub{r: r, id: r.id}, nil
}

// Subscribed reports whether a subscription is live.
func (r *Relay) Subscribed() bool { return r.id != 0 }

// Deliver hands f to the live subscriber. It returns false when none is.
func (r *Relay) Deliver(f Fix) bool {
	if r.id == 0 || r.onFix == nil {
		return false
	}
	r.onFix(f)
	return true
}

func (r *Relay) Fail(err error) bool {
	if r.id == 0 || r.onErr == nil {
		return false
	}
	r.onErr(err)
	return true
}

type relaySub struct {
	r  *Relay
	id uint64
}

func (s relaySub) Unsubscribe() {
	if s.r.id != s.id {
		return
	}
	s.r.id = 0
	s.r.onFix = nil
	s.r.onErr = nil
}
