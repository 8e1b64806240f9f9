package memory

import (
	"errors"
	"sort"

	"tripledger/internal/core"
)

var errDuplicate = errors.New("duplicate id")

func sortTrips(list []core.TripSettings) {
	sort.Slice(list, func(i, j int) bool { return list[i].TripID < list[j].TripID })
}
