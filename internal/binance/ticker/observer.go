package ticker

// Observers fans a Snapshot out to each observer in order.
type Observers []Observer

func (o Observers) Publish(s Snapshot) {
	for _, obs := range o {
		obs.Publish(s)
	}
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Snapshot)

func (f ObserverFunc) Publish(s Snapshot) { f(s) }
