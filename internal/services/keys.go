package services

import "fmt"

// Cache keys. Every key of a trip is also tagged with TripTag.
func TripTag(tripID string) string        { return "trip:" + tripID }
func ItemsKey(tripID string) string       { return fmt.Sprintf("trip:%s:items", tripID) }
func InstrumentsKey(tripID string) string { return fmt.Sprintf("trip:%s:instruments", tripID) }
func SettingsKey(tripID string) string    { return fmt.Sprintf("trip:%s:settings", tripID) }
func ItemKey(itemID string) string        { return "item:" + itemID }

// Mutation is a kind of write the service performs.
type Mutation int

const (
	MutationItemCreate Mutation = iota
	MutationItemUpdate
	MutationItemDelete
	MutationInstrumentCommit
	MutationTripSave
)

func (m Mutation) String() string {
	switch m {
	case MutationItemCreate:
		return "item_create"
	case MutationItemUpdate:
		return "item_update"
	case MutationItemDelete:
		return "item_delete"
	case MutationInstrumentCommit:
		return "instrument_commit"
	case MutationTripSave:
		return "trip_save"
	default:
		return "unknown"
	}
}

// Invalidates lists the cache keys or tags a mutation makes stale.
// Item writes drop the whole trip item list along with the single item.
func (m Mutation) Invalidates(tripID, entityID string) []string {
	switch m {
	case MutationItemCreate, MutationItemUpdate, MutationItemDelete:
		return []string{ItemsKey(tripID), ItemKey(entityID)}
	case MutationInstrumentCommit:
		return []string{InstrumentsKey(tripID), SettingsKey(tripID)}
	case MutationTripSave:
		return []string{TripTag(tripID)}
	default:
		return nil
	}
}
