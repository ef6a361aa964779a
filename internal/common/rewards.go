package common

import (
	"fmt"
	"os"
	"path/filepath"

	"taskona-ledger-go/internal/models"
	"taskona-ledger-go/internal/money"

	"gopkg.in/yaml.v2"
)

// StreakRewardConfig is one row of the streak reward file. Amounts are whole naira.
type StreakRewardConfig struct {
	Day         int    `yaml:"day"`
	BaseAmount  int64  `yaml:"base_amount"`
	BonusAmount int64  `yaml:"bonus_amount"`
	IsSpecial   bool   `yaml:"is_special"`
	Description string `yaml:"description"`
}

type StreakRewardsConfig struct {
	Rewards []StreakRewardConfig `yaml:"rewards"`
}

// DefaultStreakRewards is a 15-day table: NGN 50 a day with bonuses on days 7 and 15.
func DefaultStreakRewards() []models.StreakReward {
	rewards := make([]models.StreakReward, 0, 15)
	for day := 1; day <= 15; day++ {
		reward := models.StreakReward{Day: day, BaseAmount: money.FromNaira(50)}
		switch day {
		case 7:
			reward.BonusAmount = money.FromNaira(100)
			reward.IsSpecial = true
			reward.Description = "One week streak"
		case 15:
			reward.BonusAmount = money.FromNaira(250)
			reward.IsSpecial = true
			reward.Description = "Full cycle bonus"
		}
		rewards = append(rewards, reward)
	}
	return rewards
}

// LoadStreakRewards reads the reward table from rewardsFile, or returns the
// default table when rewardsFile is empty.
func LoadStreakRewards(rewardsFile string) ([]models.StreakReward, error) {
	if rewardsFile == "" {
		return DefaultStreakRewards(), nil
	}

	var rewardsPath string
	if filepath.IsAbs(rewardsFile) {
		rewardsPath = rewardsFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		rewardsPath = filepath.Join(wd, rewardsFile)
	}

	data, err := os.ReadFile(rewardsPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", rewardsFile, err)
	}
	return ParseStreakRewards(data)
}

func ParseStreakRewards(data []byte) ([]models.StreakReward, error) {
	var config StreakRewardsConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unable to parse streak rewards: %w", err)
	}
	if len(config.Rewards) == 0 {
		return nil, fmt.Errorf("streak rewards file has no rewards")
	}

	rewards := make([]models.StreakReward, len(config.Rewards))
	for i, reward := range config.Rewards {
		if reward.Day <= 0 {
			return nil, fmt.Errorf("reward at index %d missing day", i)
		}
		if reward.BaseAmount < 0 || reward.BonusAmount < 0 {
			return nil, fmt.Errorf("reward for day %d has a negative amount", reward.Day)
		}
		rewards[i] = models.StreakReward{
			Day:         reward.Day,
			BaseAmount:  money.FromNaira(reward.BaseAmount),
			BonusAmount: money.FromNaira(reward.BonusAmount),
			IsSpecial:   reward.IsSpecial,
			Description: reward.Description,
		}
	}
	return rewards, nil
}
