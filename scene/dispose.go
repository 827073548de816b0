package scene

type disposeListener struct {
	owner any
	fn    func()
}

// Disposable lets GPU caches learn when the application releases a resource.
// GPU memory is only freed in response to Dispose; nothing is reclaimed implicitly.
type Disposable struct {
	listeners []disposeListener
}

// OnDispose registers fn to run on Dispose. A second registration by the same
// owner replaces the first.
func (d *Disposable) OnDispose(owner any, fn func()) {
	for i := range d.listeners {
		if d.listeners[i].owner == owner {
			d.listeners[i].fn = fn
			return
		}
	}
	d.listeners = append(d.listeners, disposeListener{owner: owner, fn: fn})
}

// OffDispose removes the listener registered by owner.
func (d *Disposable) OffDispose(owner any) {
	for i := range d.listeners {
		if d.listeners[i].owner == owner {
			d.listeners = append(d.listeners[:i], d.listeners[i+1:]...)
			return
		}
	}
}

func (d *Disposable) dispatchDispose() {
	listeners := d.listeners
	d.listeners = nil
	for _, l := range listeners {
		l.fn()
	}
}

// Layers is a 32-bit visibility mask. Objects are rendered by a camera when the
// two masks share at least one bit.
type Layers uint32

// DefaultLayers has only layer 0 enabled.
const DefaultLayers Layers = 1

func (l Layers) Test(o Layers) bool {
	return l&o != 0
}

func (l *Layers) Set(channel int) {
	*l = 1 << uint(channel)
}

func (l *Layers) Enable(channel int) {
	*l |= 1 << uint(channel)
}

func (l *Layers) Disable(channel int) {
	*l &^= 1 << uint(channel)
}

// AllLayers enables every channel.
const AllLayers Layers = 0xffffffff
