package rmw

import "time"

// TypeSupport describes the message type an endpoint carries.
// *msgdef.Definition type supports satisfy it.
type TypeSupport interface {
	TypeName() string
	Size() int
	Align() int
}

// Entity is anything the runtime creates.
type Entity interface {
	GID() GID
	// IsValid reports whether the entity can still be used. It turns false
	// once the entity is finalized.
	IsValid() bool
}

// Subscription receives serialized messages published on a topic.
type Subscription interface {
	Entity
	Topic() string
	TypeName() string
	// Take removes the oldest queued message. ok is false when the queue is
	// empty.
	Take() (payload []byte, ok bool, err error)
}

// Publisher sends serialized messages to every subscription on its topic.
type Publisher interface {
	Entity
	Topic() string
	TypeName() string
	Publish(payload []byte) error
}

// Client sends service requests and receives their responses.
type Client interface {
	Entity
	Service() string
	// SendRequest queues a request and returns its sequence number.
	SendRequest(payload []byte) (seq int64, err error)
	// TakeResponse removes the oldest received response.
	TakeResponse() (seq int64, payload []byte, ok bool, err error)
}

// ServiceHandler answers one serialized request.
type ServiceHandler func(request []byte) (response []byte, err error)

// Service serves requests sent by clients of the same service name.
type Service interface {
	Entity
	Service() string
}

// GuardCondition is a manually triggered wake signal. A trigger stays
// pending until a wait observes it.
type GuardCondition interface {
	Entity
	Trigger() error
}

// WaitSet blocks until one of its entities is ready.
//
// A wait set is sized at creation and used for a single Wait, then
// released with Fini. Entities added to it cannot be finalized until Fini.
type WaitSet interface {
	AddSubscription(Subscription) error
	AddGuardCondition(GuardCondition) error
	AddClient(Client) error
	// Wait blocks until an added entity is ready or the timeout elapses.
	// A negative timeout waits forever; zero polls.
	Wait(timeout time.Duration) error
	Fini() error
}

// Runtime creates and destroys middleware entities.
type Runtime interface {
	CreateSubscription(topic string, ts TypeSupport) (Subscription, error)
	CreatePublisher(topic string, ts TypeSupport) (Publisher, error)
	CreateClient(service string, request, response TypeSupport) (Client, error)
	CreateService(service string, request, response TypeSupport, h ServiceHandler) (Service, error)
	CreateGuardCondition() (GuardCondition, error)
	CreateWaitSet(subscriptions, guards, clients int) (WaitSet, error)

	FinalizeSubscription(Subscription) error
	FinalizePublisher(Publisher) error
	FinalizeClient(Client) error
	FinalizeService(Service) error
	FinalizeGuardCondition(GuardCondition) error
}

// Forever is the Wait timeout that never elapses.
const Forever time.Duration = -1
