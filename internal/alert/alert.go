// Copyright 2026 The frontend-digitizers-calibration Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package alert sends e-mail notifications about missing calibrations.
package alert // import "github.com/datastreaming/frontend-digitizers-calibration/internal/alert"

import (
	"crypto/tls"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	mail "gopkg.in/gomail.v2"

	"github.com/datastreaming/frontend-digitizers-calibration/calib"
	"github.com/datastreaming/frontend-digitizers-calibration/config"
)

// MaxAlerts is the maximum number of alerts sent for a given frequency.
const MaxAlerts = 5

// Mailer notifies operators by e-mail when no voltage calibration is
// available for a sampling frequency.
type Mailer struct {
	host string // ioc host
	cfg  config.Alert

	mu     sync.Mutex
	alerts map[int]int // frequency -> number of sent alerts

	send func(msg *mail.Message) error
}

var _ calib.Notifier = (*Mailer)(nil)

// New creates a mailer for the ioc host. Missing SMTP settings are taken
// from the MAIL_SERVER, MAIL_PORT, MAIL_USERNAME, MAIL_PASSWORD and
// MAIL_TGTS environment variables.
func New(host string, cfg config.Alert) (*Mailer, error) {
	if cfg.Host == "" {
		cfg.Host = os.Getenv("MAIL_SERVER")
	}
	if cfg.Port == 0 {
		cfg.Port = atoi(os.Getenv("MAIL_PORT"))
	}
	if cfg.User == "" {
		cfg.User = os.Getenv("MAIL_USERNAME")
	}
	if cfg.Password == "" {
		cfg.Password = os.Getenv("MAIL_PASSWORD")
	}
	if len(cfg.To) == 0 {
		if v := os.Getenv("MAIL_TGTS"); v != "" {
			cfg.To = strings.Split(v, ",")
		}
	}
	if cfg.From == "" {
		cfg.From = cfg.User
	}

	switch {
	case cfg.Host == "" || cfg.Port == 0:
		return nil, fmt.Errorf("alert: missing smtp server")
	case cfg.From == "":
		return nil, fmt.Errorf("alert: missing sender address")
	case len(cfg.To) == 0:
		return nil, fmt.Errorf("alert: missing recipients")
	}

	m := &Mailer{
		host:   host,
		cfg:    cfg,
		alerts: make(map[int]int),
	}
	m.send = m.dialAndSend
	return m, nil
}

// Notify sends an e-mail describing err, at most MaxAlerts times per frequency.
func (m *Mailer) Notify(err *calib.NoVoltageCalibrationError) error {
	m.mu.Lock()
	m.alerts[err.Frequency]++
	n := m.alerts[err.Frequency]
	m.mu.Unlock()

	if n > MaxAlerts {
		return nil
	}

	msg := mail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("Bcc", m.cfg.To...)
	msg.SetHeader("Subject", fmt.Sprintf("[drs-calib] %s: no voltage calibration for frequency %d", m.host, err.Frequency))
	msg.SetBody("text/plain", fmt.Sprintf(
		"ioc host:  %s\nfrequency: %d\nalert:     %d/%d\nerror:     %v\n",
		m.host, err.Frequency, n, MaxAlerts, err.Err,
	))

	e := m.send(msg)
	if e != nil {
		return fmt.Errorf("alert: could not send mail alert: %w", e)
	}
	return nil
}

func (m *Mailer) dialAndSend(msg *mail.Message) error {
	dial := mail.NewDialer(m.cfg.Host, m.cfg.Port, m.cfg.User, m.cfg.Password)
	dial.TLSConfig = &tls.Config{
		ServerName: m.cfg.Host,
	}
	return dial.DialAndSend(msg)
}

func atoi(s string) int {
	if s == "" {
		return 0
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return v
}
