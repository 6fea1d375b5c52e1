package tariff

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evcs/models"
	"evcs/utility"
)

type stubStore struct {
	tariffs []models.Tariff
	added   []*models.Tariff
	updated []*models.Tariff
	err     error
}

func (s *stubStore) GetTariff(id string) (*models.Tariff, error) {
	for i := range s.tariffs {
		if s.tariffs[i].Id == id {
			return &s.tariffs[i], nil
		}
	}
	return nil, utility.NotFoundErr("tariff not found")
}

func (s *stubStore) GetTariffs(string, int) ([]models.Tariff, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.tariffs, nil
}

func (s *stubStore) AddTariff(tariff *models.Tariff) error {
	s.added = append(s.added, tariff)
	return nil
}

func (s *stubStore) UpdateTariff(tariff *models.Tariff) error {
	s.updated = append(s.updated, tariff)
	return nil
}

func dayPtr(d int) *int { return &d }

func TestResolveActivePrefersLatestValidFrom(t *testing.T) {
	now := time.Now().UTC()
	store := &stubStore{tariffs: []models.Tariff{
		{Id: "old", IsActive: true, ValidFrom: now.Add(-48 * time.Hour)},
		{Id: "new", IsActive: true, ValidFrom: now.Add(-time.Hour)},
	}}
	resolver := NewResolver(store)

	tariff, err := resolver.ResolveActive("cp1", 1, now)
	require.NoError(t, err)
	require.NotNil(t, tariff)
	assert.Equal(t, "new", tariff.Id)
}

func TestResolveActiveTieBrokenByCreatedAt(t *testing.T) {
	now := time.Now().UTC()
	validFrom := now.Add(-time.Hour)
	store := &stubStore{tariffs: []models.Tariff{
		{Id: "first", IsActive: true, ValidFrom: validFrom, CreatedAt: now.Add(-time.Hour)},
		{Id: "second", IsActive: true, ValidFrom: validFrom, CreatedAt: now.Add(-time.Minute)},
	}}
	resolver := NewResolver(store)

	tariff, err := resolver.ResolveActive("cp1", 1, now)
	require.NoError(t, err)
	require.NotNil(t, tariff)
	assert.Equal(t, "second", tariff.Id)
}

func TestResolveActiveSkipsInactiveFutureAndExpired(t *testing.T) {
	now := time.Now().UTC()
	expired := now.Add(-time.Minute)
	store := &stubStore{tariffs: []models.Tariff{
		{Id: "inactive", IsActive: false, ValidFrom: now.Add(-time.Hour)},
		{Id: "future", IsActive: true, ValidFrom: now.Add(time.Hour)},
		{Id: "expired", IsActive: true, ValidFrom: now.Add(-48 * time.Hour), ValidUntil: &expired},
	}}
	resolver := NewResolver(store)

	tariff, err := resolver.ResolveActive("cp1", 1, now)
	require.NoError(t, err)
	assert.Nil(t, tariff)
}

func TestPriceAtWindowMatch(t *testing.T) {
	tariff := &models.Tariff{
		BasePrice: 0.40,
		Windows: []models.PriceWindow{
			{StartTime: "22:00", EndTime: "23:59", PricePerKwh: 0.15},
			{StartTime: "08:00", EndTime: "20:00", PricePerKwh: 0.30},
		},
	}
	at := time.Date(2026, 3, 10, 12, 30, 0, 0, time.UTC)
	assert.Equal(t, 0.30, PriceAt(tariff, at))
}

func TestPriceAtFirstWindowWins(t *testing.T) {
	tariff := &models.Tariff{
		BasePrice: 0.40,
		Windows: []models.PriceWindow{
			{StartTime: "08:00", EndTime: "20:00", PricePerKwh: 0.30},
			{StartTime: "10:00", EndTime: "14:00", PricePerKwh: 0.10},
		},
	}
	at := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, 0.30, PriceAt(tariff, at))
}

func TestPriceAtBoundsInclusive(t *testing.T) {
	tariff := &models.Tariff{
		BasePrice: 0.40,
		Windows: []models.PriceWindow{
			{StartTime: "08:00", EndTime: "20:00", PricePerKwh: 0.30},
		},
	}
	start := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 10, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, 0.30, PriceAt(tariff, start))
	assert.Equal(t, 0.30, PriceAt(tariff, end))
}

func TestPriceAtDayOfWeek(t *testing.T) {
	tariff := &models.Tariff{
		BasePrice: 0.40,
		Windows: []models.PriceWindow{
			{StartTime: "00:00", EndTime: "23:59", DayOfWeek: dayPtr(0), PricePerKwh: 0.20},
		},
	}
	// 2026-03-08 is a Sunday, 2026-03-09 a Monday
	sunday := time.Date(2026, 3, 8, 12, 0, 0, 0, time.UTC)
	monday := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, 0.20, PriceAt(tariff, sunday))
	assert.Equal(t, 0.40, PriceAt(tariff, monday))
}

func TestPriceAtFallbackBasePrice(t *testing.T) {
	tariff := &models.Tariff{
		BasePrice: 0.40,
		Windows: []models.PriceWindow{
			{StartTime: "22:00", EndTime: "23:00", PricePerKwh: 0.15},
		},
	}
	at := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, 0.40, PriceAt(tariff, at))
}

func TestWindowsConflictOverlap(t *testing.T) {
	a := models.PriceWindow{StartTime: "08:00", EndTime: "12:00"}
	b := models.PriceWindow{StartTime: "11:00", EndTime: "15:00"}
	assert.True(t, WindowsConflict(a, b))
	assert.True(t, WindowsConflict(b, a))
}

func TestWindowsConflictTouchingEdges(t *testing.T) {
	a := models.PriceWindow{StartTime: "08:00", EndTime: "12:00"}
	b := models.PriceWindow{StartTime: "12:00", EndTime: "15:00"}
	assert.True(t, WindowsConflict(a, b))
}

func TestWindowsNoConflictDisjoint(t *testing.T) {
	a := models.PriceWindow{StartTime: "08:00", EndTime: "12:00"}
	b := models.PriceWindow{StartTime: "12:01", EndTime: "15:00"}
	assert.False(t, WindowsConflict(a, b))
}

func TestWindowsNoConflictDifferentDays(t *testing.T) {
	a := models.PriceWindow{StartTime: "08:00", EndTime: "12:00", DayOfWeek: dayPtr(1)}
	b := models.PriceWindow{StartTime: "08:00", EndTime: "12:00", DayOfWeek: dayPtr(2)}
	assert.False(t, WindowsConflict(a, b))
}

func TestWindowsConflictNilDayOverlapsAny(t *testing.T) {
	a := models.PriceWindow{StartTime: "08:00", EndTime: "12:00"}
	b := models.PriceWindow{StartTime: "08:00", EndTime: "12:00", DayOfWeek: dayPtr(3)}
	assert.True(t, WindowsConflict(a, b))
}

func TestCreateRejectsConflictingTariff(t *testing.T) {
	store := &stubStore{tariffs: []models.Tariff{
		{Id: "existing", IsActive: true, Windows: []models.PriceWindow{
			{StartTime: "08:00", EndTime: "20:00", PricePerKwh: 0.30},
		}},
	}}
	resolver := NewResolver(store)

	err := resolver.Create(&models.Tariff{
		Id: "candidate",
		Windows: []models.PriceWindow{
			{StartTime: "18:00", EndTime: "22:00", PricePerKwh: 0.25},
		},
	})
	require.Error(t, err)
	assert.Equal(t, utility.CodeConflict, utility.CodeOf(err))
	assert.Empty(t, store.added)
}

func TestCreateAcceptsNonConflictingTariff(t *testing.T) {
	store := &stubStore{tariffs: []models.Tariff{
		{Id: "existing", IsActive: true, Windows: []models.PriceWindow{
			{StartTime: "08:00", EndTime: "12:00", PricePerKwh: 0.30},
		}},
	}}
	resolver := NewResolver(store)

	err := resolver.Create(&models.Tariff{
		Id: "candidate",
		Windows: []models.PriceWindow{
			{StartTime: "13:00", EndTime: "18:00", PricePerKwh: 0.25},
		},
	})
	require.NoError(t, err)
	require.Len(t, store.added, 1)
	assert.False(t, store.added[0].CreatedAt.IsZero())
}

func TestUpdateIgnoresOwnWindows(t *testing.T) {
	store := &stubStore{tariffs: []models.Tariff{
		{Id: "existing", IsActive: true, Windows: []models.PriceWindow{
			{StartTime: "08:00", EndTime: "20:00", PricePerKwh: 0.30},
		}},
	}}
	resolver := NewResolver(store)

	err := resolver.Update(&models.Tariff{
		Id: "existing",
		Windows: []models.PriceWindow{
			{StartTime: "08:00", EndTime: "20:00", PricePerKwh: 0.35},
		},
	})
	require.NoError(t, err)
	require.Len(t, store.updated, 1)
}

func TestResolverWithoutStore(t *testing.T) {
	resolver := NewResolver(nil)

	plan, err := resolver.ResolveActive("cp1", 1, time.Now())
	require.NoError(t, err)
	assert.Nil(t, plan)

	err = resolver.Create(&models.Tariff{ChargePointId: "cp1"})
	require.Error(t, err)
}
