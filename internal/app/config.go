package app

import (
	"giftomatic/internal/config"
	"giftomatic/internal/gifts"
	"giftomatic/internal/janitor"
)

func giftsConfig(c config.GiftsConfig) (gifts.Config, error) {
	vip, def, err := c.Intervals()
	if err != nil {
		return gifts.Config{}, err
	}
	callTimeout, err := config.ParseDurationField("gifts.call_timeout", c.CallTimeout)
	if err != nil {
		return gifts.Config{}, err
	}
	retryBase, err := config.ParseDurationField("gifts.retry_base", c.RetryBase)
	if err != nil {
		return gifts.Config{}, err
	}
	retryMaxDelay, err := config.ParseDurationField("gifts.retry_max_delay", c.RetryMaxDelay)
	if err != nil {
		return gifts.Config{}, err
	}
	return gifts.Config{
		VIPPollInterval:     vip,
		DefaultPollInterval: def,
		BatchSize:           c.BatchSize,
		CallTimeout:         callTimeout,
		MaxAttempts:         c.MaxAttempts,
		RetryBase:           retryBase,
		RetryMaxDelay:       retryMaxDelay,
	}, nil
}

func janitorConfig(c *config.JanitorConfig) (janitor.Config, error) {
	if c == nil {
		// Omitted section means enabled with defaults.
		return janitor.Config{Enabled: true}, nil
	}
	sweep, err := config.ParseDurationField("janitor.sweep_every", c.SweepEvery)
	if err != nil {
		return janitor.Config{}, err
	}
	pending, err := config.ParseDurationField("janitor.pending_max_age", c.PendingMaxAge)
	if err != nil {
		return janitor.Config{}, err
	}
	invoice, err := config.ParseDurationField("janitor.invoice_max_age", c.InvoiceMaxAge)
	if err != nil {
		return janitor.Config{}, err
	}
	return janitor.Config{
		Enabled:       c.Enabled,
		SweepEvery:    sweep,
		PendingMaxAge: pending,
		InvoiceMaxAge: invoice,
	}, nil
}
