package tariff

import (
	"fmt"
	"sort"
	"time"

	"evcs/internal"
	"evcs/models"
	"evcs/utility"
)

// Store is the subset of the database the resolver needs.
type Store interface {
	GetTariff(id string) (*models.Tariff, error)
	GetTariffs(chargePointId string, connectorId int) ([]models.Tariff, error)
	AddTariff(tariff *models.Tariff) error
	UpdateTariff(tariff *models.Tariff) error
}

type Resolver struct {
	store  Store
	logger internal.LogHandler
}

func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

func (r *Resolver) SetLogger(logger internal.LogHandler) {
	r.logger = logger
}

// ResolveActive picks the tariff in force for a connector at the given
// moment: active, already valid, not yet expired. Among matches the most
// recent validFrom wins, ties broken by creation time.
func (r *Resolver) ResolveActive(chargePointId string, connectorId int, at time.Time) (*models.Tariff, error) {
	if r.store == nil {
		return nil, nil
	}
	candidates, err := r.store.GetTariffs(chargePointId, connectorId)
	if err != nil {
		return nil, utility.InternalErr("reading tariffs", err)
	}
	var matches []models.Tariff
	for _, t := range candidates {
		if !t.IsActive {
			continue
		}
		if t.ValidFrom.After(at) {
			continue
		}
		if t.ValidUntil != nil && t.ValidUntil.Before(at) {
			continue
		}
		matches = append(matches, t)
	}
	if len(matches) == 0 {
		return nil, nil
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if !matches[i].ValidFrom.Equal(matches[j].ValidFrom) {
			return matches[i].ValidFrom.After(matches[j].ValidFrom)
		}
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
	return &matches[0], nil
}

// PriceAt scans the tariff windows in stored order; the first window
// covering the moment wins, otherwise the base price applies.
func PriceAt(tariff *models.Tariff, at time.Time) float64 {
	clock := at.Format("15:04")
	day := int(at.Weekday())
	for _, w := range tariff.Windows {
		if w.DayOfWeek != nil && *w.DayOfWeek != day {
			continue
		}
		if clock >= w.StartTime && clock <= w.EndTime {
			return w.PricePerKwh
		}
	}
	return tariff.BasePrice
}

func (r *Resolver) Create(tariff *models.Tariff) error {
	if r.store == nil {
		return utility.Err("tariff store is not configured")
	}
	if err := r.assertNoConflict(tariff, ""); err != nil {
		return err
	}
	now := time.Now().UTC()
	tariff.CreatedAt = now
	tariff.UpdatedAt = now
	if err := r.store.AddTariff(tariff); err != nil {
		return utility.InternalErr("adding tariff", err)
	}
	return nil
}

func (r *Resolver) Update(tariff *models.Tariff) error {
	if r.store == nil {
		return utility.Err("tariff store is not configured")
	}
	if err := r.assertNoConflict(tariff, tariff.Id); err != nil {
		return err
	}
	tariff.UpdatedAt = time.Now().UTC()
	if err := r.store.UpdateTariff(tariff); err != nil {
		return utility.InternalErr("updating tariff", err)
	}
	return nil
}

// assertNoConflict rejects a tariff whose windows overlap any other
// active tariff on the same connector. Runs before the write so two
// overlapping tariffs are never both admitted.
func (r *Resolver) assertNoConflict(candidate *models.Tariff, excludeId string) error {
	connectorId := 0
	if candidate.ConnectorId != nil {
		connectorId = *candidate.ConnectorId
	}
	others, err := r.store.GetTariffs(candidate.ChargePointId, connectorId)
	if err != nil {
		return utility.InternalErr("reading tariffs", err)
	}
	for _, other := range others {
		if other.Id == excludeId || !other.IsActive {
			continue
		}
		for _, cw := range candidate.Windows {
			for _, ow := range other.Windows {
				if WindowsConflict(cw, ow) {
					return utility.ConflictErr(fmt.Sprintf(
						"window %s-%s overlaps tariff %s window %s-%s",
						cw.StartTime, cw.EndTime, other.Id, ow.StartTime, ow.EndTime))
				}
			}
		}
	}
	return nil
}

// WindowsConflict reports whether two price windows can ever cover the
// same moment: their day selectors overlap and their time ranges do.
func WindowsConflict(a, b models.PriceWindow) bool {
	return daysOverlap(a.DayOfWeek, b.DayOfWeek) && rangesOverlap(a, b)
}

func daysOverlap(a, b *int) bool {
	if a == nil || b == nil {
		return true
	}
	return *a == *b
}

func rangesOverlap(a, b models.PriceWindow) bool {
	return a.StartTime <= b.EndTime && b.StartTime <= a.EndTime
}
