package config

import "fmt"

func validate(c *Config) error {
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http timeout must be > 0")
	}
	if c.DelayMin < 0 || c.DelayMax < c.DelayMin {
		return fmt.Errorf("delay bounds must satisfy 0 <= min <= max")
	}
	if c.ChallengeTimeout <= 0 || c.ChallengePoll <= 0 {
		return fmt.Errorf("challenge timeout and poll interval must be > 0")
	}
	if c.RetryMaxAttempts <= 0 {
		return fmt.Errorf("retry attempts must be > 0")
	}
	return nil
}
