package contacts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"vanguard/internal/faults"
)

// Contact is one emergency contact.
type Contact struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	PhoneNumber string    `json:"phoneNumber"`
	IsPriority  bool      `json:"isPriority"`
	AddedAt     time.Time `json:"addedAt"`
}

// Slot is durable storage for the ordered contact list.
type Slot interface {
	Load(ctx context.Context) ([]Contact, error)
	Store(ctx context.Context, contacts []Contact) error
}

var (
	ErrNameRequired  = errors.New("contact name is required")
	ErrPhoneRequired = errors.New("contact phone number is required")
)

// Registry is the in-memory, persisted contact list.
type Registry struct {
	slot Slot
	now  func() time.Time

	mu          sync.Mutex
	contacts    []Contact
	subscribers map[int]func([]Contact)
	nextSub     int
}

// NewRegistry loads the current list from slot.
func NewRegistry(ctx context.Context, slot Slot) (*Registry, error) {
	r := &Registry{slot: slot, now: time.Now, subscribers: map[int]func([]Contact){}}
	if slot == nil {
		return r, nil
	}
	loaded, err := slot.Load(ctx)
	if err != nil {
		return nil, faults.Wrap(faults.ErrPersistence, "contacts", "load", "read contact slot", err)
	}
	r.contacts = loaded
	return r, nil
}

// List returns a snapshot of the contacts in insertion order.
func (r *Registry) List() []Contact {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Contact(nil), r.contacts...)
}

// Add appends a contact and persists the list.
func (r *Registry) Add(ctx context.Context, name, phone string, priority bool) (Contact, error) {
	name = strings.TrimSpace(name)
	phone = strings.TrimSpace(phone)
	if name == "" {
		return Contact{}, ErrNameRequired
	}
	if phone == "" {
		return Contact{}, ErrPhoneRequired
	}
	contact := Contact{
		ID:          uuid.NewString(),
		Name:        name,
		PhoneNumber: phone,
		IsPriority:  priority,
		AddedAt:     r.now().UTC(),
	}

	r.mu.Lock()
	next := append(append([]Contact(nil), r.contacts...), contact)
	if err := r.persistLocked(ctx, next); err != nil {
		r.mu.Unlock()
		return Contact{}, err
	}
	snapshot, subs := r.commitLocked(next)
	r.mu.Unlock()

	notify(subs, snapshot)
	return contact, nil
}

// Remove deletes the contact with id. It reports false, without error, when
// no such contact exists.
func (r *Registry) Remove(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	index := -1
	for i, contact := range r.contacts {
		if contact.ID == id {
			index = i
			break
		}
	}
	if index < 0 {
		r.mu.Unlock()
		return false, nil
	}
	next := make([]Contact, 0, len(r.contacts)-1)
	next = append(next, r.contacts[:index]...)
	next = append(next, r.contacts[index+1:]...)
	if err := r.persistLocked(ctx, next); err != nil {
		r.mu.Unlock()
		return false, err
	}
	snapshot, subs := r.commitLocked(next)
	r.mu.Unlock()

	notify(subs, snapshot)
	return true, nil
}

// Find resolves a contact by full ID or unique ID prefix.
func (r *Registry) Find(idOrPrefix string) (Contact, bool) {
	idOrPrefix = strings.TrimSpace(idOrPrefix)
	if idOrPrefix == "" {
		return Contact{}, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var match *Contact
	for i := range r.contacts {
		if r.contacts[i].ID == idOrPrefix {
			return r.contacts[i], true
		}
		if strings.HasPrefix(r.contacts[i].ID, idOrPrefix) {
			if match != nil {
				return Contact{}, false
			}
			match = &r.contacts[i]
		}
	}
	if match == nil {
		return Contact{}, false
	}
	return *match, true
}

// Subscribe registers fn for change notifications and returns a function that
// cancels the subscription.
func (r *Registry) Subscribe(fn func([]Contact)) func() {
	r.mu.Lock()
	id := r.nextSub
	r.nextSub++
	r.subscribers[id] = fn
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subscribers, id)
			r.mu.Unlock()
		})
	}
}

func (r *Registry) persistLocked(ctx context.Context, next []Contact) error {
	if r.slot == nil {
		return nil
	}
	if err := r.slot.Store(ctx, next); err != nil {
		return faults.Wrap(faults.ErrPersistence, "contacts", "store", fmt.Sprintf("write %d contacts", len(next)), err)
	}
	return nil
}

func (r *Registry) commitLocked(next []Contact) ([]Contact, []func([]Contact)) {
	r.contacts = next
	subs := make([]func([]Contact), 0, len(r.subscribers))
	for _, fn := range r.subscribers {
		subs = append(subs, fn)
	}
	return append([]Contact(nil), next...), subs
}

func notify(subs []func([]Contact), snapshot []Contact) {
	for _, fn := range subs {
		fn(append([]Contact(nil), snapshot...))
	}
}
