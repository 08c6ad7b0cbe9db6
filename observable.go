package statecore

// Observer receives state values from an Observable. Next is optional; an
// Observer with a nil Next is a valid subscriber that receives nothing.
type Observer struct {
	Next func(state State)
}

// Subscription cancels an Observable subscription.
type Subscription interface {
	Unsubscribe()
}

// Observable is a minimal reactive view of a store's state.
type Observable interface {
	// Subscribe delivers the current state to observer immediately and then
	// after every dispatch.
	Subscribe(observer *Observer) (Subscription, error)
}

type observable struct {
	store Store
}

func (o *observable) Subscribe(observer *Observer) (Subscription, error) {
	if observer == nil {
		return nil, newError(ErrCodeInvalidObserver, "expected the observer to be a non-nil *Observer")
	}

	observe := func() {
		if observer.Next != nil {
			observer.Next(o.store.GetState())
		}
	}

	observe()
	unsubscribe, err := o.store.Subscribe(observe)
	if err != nil {
		return nil, err
	}
	return subscriptionFunc(unsubscribe), nil
}

type subscriptionFunc func()

func (f subscriptionFunc) Unsubscribe() { f() }
