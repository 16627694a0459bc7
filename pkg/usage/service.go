package usage

import (
	"log"
	"time"

	"gorm.io/gorm"

	"socialpulse_backend/pkg/config"
	"socialpulse_backend/pkg/subscription"
)

// CheckResult is the answer to "may this user use this feature right now".
type CheckResult struct {
	Allowed bool `json:"allowed"`
	Used    int  `json:"used"`
	Limit   int  `json:"limit"`
}

// Service is the usage ledger. It records consumption of metered features and
// answers entitlement checks against the plan catalog. Checking and counting
// are deliberately separate operations: CheckUsage decides, IncrementUsage
// records, and nothing here stops a caller from incrementing past the limit.
// ReserveUsage collapses both into one conditional increment for callers that
// need the race-free variant.
type Service struct {
	repo Repository
	loc  *time.Location
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		loc:  periodLocation(),
		now:  time.Now,
	}
}

// NewServiceFromDB creates a usage service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db))
}

func periodLocation() *time.Location {
	name := config.Get().Usage.Timezone
	if name == "" || name == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Printf("Invalid USAGE_PERIOD_TZ %q, falling back to local time: %v", name, err)
		return time.Local
	}
	return loc
}

// PeriodBounds returns the calendar-month usage period containing now:
// [first instant of the month, first instant of the next month).
func PeriodBounds(now time.Time) (time.Time, time.Time) {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return start, start.AddDate(0, 1, 0)
}

func (s *Service) currentPeriod() (time.Time, time.Time) {
	return PeriodBounds(s.now().In(s.loc))
}

// CheckUsage reports whether userID may use feature in the current period.
// An unlimited feature short-circuits without touching the ledger.
func (s *Service) CheckUsage(userID uint, feature subscription.Feature) (CheckResult, error) {
	tier, err := s.repo.GetUserTier(userID)
	if err != nil {
		return CheckResult{}, err
	}

	limit := subscription.FeatureLimit(tier, feature)
	if limit == subscription.Unlimited {
		return CheckResult{Allowed: true, Used: 0, Limit: subscription.Unlimited}, nil
	}

	periodStart, _ := s.currentPeriod()
	used, err := s.repo.GetCount(userID, string(feature), periodStart)
	if err != nil {
		return CheckResult{}, err
	}

	return CheckResult{Allowed: used < limit, Used: used, Limit: limit}, nil
}

// IncrementUsage records one use of feature in the current period and returns
// the new count. It does not enforce the limit; callers are expected to check
// first.
func (s *Service) IncrementUsage(userID uint, feature subscription.Feature) (int, error) {
	periodStart, periodEnd := s.currentPeriod()
	return s.repo.IncrementOrCreate(userID, string(feature), periodStart, periodEnd)
}

// ReserveUsage atomically claims one unit of feature capacity. Unlike the
// CheckUsage/IncrementUsage pair there is no window in which two concurrent
// callers can both pass the check on the last remaining unit.
func (s *Service) ReserveUsage(userID uint, feature subscription.Feature) (CheckResult, error) {
	tier, err := s.repo.GetUserTier(userID)
	if err != nil {
		return CheckResult{}, err
	}

	limit := subscription.FeatureLimit(tier, feature)
	if limit == subscription.Unlimited {
		periodStart, periodEnd := s.currentPeriod()
		if _, err := s.repo.IncrementOrCreate(userID, string(feature), periodStart, periodEnd); err != nil {
			return CheckResult{}, err
		}
		return CheckResult{Allowed: true, Used: 0, Limit: subscription.Unlimited}, nil
	}
	if limit <= 0 {
		return CheckResult{Allowed: false, Used: 0, Limit: limit}, nil
	}

	periodStart, periodEnd := s.currentPeriod()
	count, ok, err := s.repo.IncrementIfBelow(userID, string(feature), periodStart, periodEnd, limit)
	if err != nil {
		return CheckResult{}, err
	}
	return CheckResult{Allowed: ok, Used: count, Limit: limit}, nil
}
