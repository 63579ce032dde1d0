package config

import (
	"log"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// RewardsSettings holds the tunables of the points/voucher engine. Values
// come from rewards.yaml (optional) with REWARDS_* environment overrides,
// and can be re-read at runtime via Reload without restarting the process.
// Services receive this object injected rather than reading globals.
type RewardsSettings struct {
	mu sync.RWMutex
	v  *viper.Viper

	voucherTTL        time.Duration
	expiredRetention  time.Duration
	sweepInterval     time.Duration
	pointsPerDonation int
}

// LoadRewardsSettings reads the rewards configuration. A missing config
// file is fine; defaults and environment overrides still apply.
func LoadRewardsSettings() (*RewardsSettings, error) {
	v := viper.New()
	v.SetConfigName("rewards")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvPrefix("rewards")
	v.AutomaticEnv()

	v.SetDefault("voucher_ttl", "24h")
	v.SetDefault("expired_retention", "168h")
	v.SetDefault("sweep_interval", "10m")
	v.SetDefault("points_per_donation", 100)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		log.Println("No rewards.yaml found, using defaults and environment overrides")
	}

	s := &RewardsSettings{v: v}
	s.refresh()
	return s, nil
}

// Reload re-reads the config file and refreshes the cached values.
func (s *RewardsSettings) Reload() error {
	if err := s.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
	}
	s.refresh()
	return nil
}

func (s *RewardsSettings) refresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.voucherTTL = s.v.GetDuration("voucher_ttl")
	s.expiredRetention = s.v.GetDuration("expired_retention")
	s.sweepInterval = s.v.GetDuration("sweep_interval")
	s.pointsPerDonation = s.v.GetInt("points_per_donation")
}

// VoucherTTL is how long a pending voucher stays redeemable.
func (s *RewardsSettings) VoucherTTL() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.voucherTTL
}

// ExpiredRetention is how long expired vouchers are kept before the sweep
// purges them.
func (s *RewardsSettings) ExpiredRetention() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiredRetention
}

// SweepInterval is the cadence of the background expiry sweep.
func (s *RewardsSettings) SweepInterval() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sweepInterval
}

// PointsPerDonation is the ledger credit for one recorded donation.
func (s *RewardsSettings) PointsPerDonation() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pointsPerDonation
}

// Snapshot returns the current values for display on the admin surface.
func (s *RewardsSettings) Snapshot() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]interface{}{
		"voucher_ttl":         s.voucherTTL.String(),
		"expired_retention":   s.expiredRetention.String(),
		"sweep_interval":      s.sweepInterval.String(),
		"points_per_donation": s.pointsPerDonation,
	}
}

// SetVoucherTTL overrides the TTL in memory. Used by tests; production
// changes go through the config file and Reload.
func (s *RewardsSettings) SetVoucherTTL(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.voucherTTL = d
}

// SetExpiredRetention overrides the retention window in memory.
func (s *RewardsSettings) SetExpiredRetention(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expiredRetention = d
}
