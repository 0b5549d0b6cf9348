package wizard

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/bgdnvk/wpdeploy/internal/session"
)

// ErrUnknownField is returned by Set for a name that is not an editable
// session field.
var ErrUnknownField = errors.New("unknown field")

type setter func(s *session.Session, value string) error

// Field names match the persisted JSON names.
var setters = map[string]setter{
	"name":        func(s *session.Session, v string) error { s.Name = v; return nil },
	"gitUrl":      func(s *session.Session, v string) error { s.SetGitURL(v); return nil },
	"wpUrl":       func(s *session.Session, v string) error { s.WpURL = v; return nil },
	"ftpHost":     func(s *session.Session, v string) error { s.FtpHost = v; return nil },
	"ftpUser":     func(s *session.Session, v string) error { s.FtpUser = v; return nil },
	"ftpPassword": func(s *session.Session, v string) error { s.FtpPassword = v; return nil },
	"ftpPort": func(s *session.Session, v string) error {
		if v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 || n > 65535 {
				return fmt.Errorf("invalid port %q", v)
			}
		}
		s.FtpPort = v
		return nil
	},
	"target": func(s *session.Session, v string) error {
		t, err := session.ParseTarget(v)
		if err != nil {
			return err
		}
		s.SetTarget(t)
		return nil
	},
	"targetName": func(s *session.Session, v string) error { s.TargetName = v; return nil },
	"branch":     func(s *session.Session, v string) error { s.Branch = v; return nil },
	"protocol": func(s *session.Session, v string) error {
		p, err := session.ParseProtocol(v)
		if err != nil {
			return err
		}
		s.Protocol = p
		return nil
	},
	"authType": func(s *session.Session, v string) error {
		a, err := session.ParseAuthMethod(v)
		if err != nil {
			return err
		}
		s.AuthType = a
		return nil
	},
	"remoteBase": func(s *session.Session, v string) error { s.RemoteBase = v; return nil },
	"deploymentMode": func(s *session.Session, v string) error {
		m, err := session.ParseDeploymentMode(v)
		if err != nil {
			return err
		}
		s.DeploymentMode = m
		return nil
	},
	"webhookUrl":     func(s *session.Session, v string) error { s.WebhookURL = v; return nil },
	"notifications":  boolField(func(s *session.Session) *bool { return &s.Notifications }),
	"enableRollback": boolField(func(s *session.Session) *bool { return &s.EnableRollback }),
	"createLog":      boolField(func(s *session.Session) *bool { return &s.CreateLog }),
	"dryRun":         boolField(func(s *session.Session) *bool { return &s.DryRun }),
	"currentStep": func(s *session.Session, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid step %q", v)
		}
		s.CurrentStep = n
		return nil
	},
}

func boolField(field func(*session.Session) *bool) setter {
	return func(s *session.Session, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid boolean %q", v)
		}
		*field(s) = b
		return nil
	}
}

// Fields lists the names Set accepts.
func Fields() []string {
	names := make([]string, 0, len(setters))
	for name := range setters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Set parses value into the named field and commits the change. Invalid
// input leaves the session and its history untouched.
func (e *Engine) Set(field, value string) (session.Session, error) {
	set, ok := setters[field]
	if !ok {
		return e.Session(), fmt.Errorf("%w: %s", ErrUnknownField, field)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	probe := e.current.Clone()
	if err := set(&probe, value); err != nil {
		return e.current.Clone(), fmt.Errorf("set %s: %w", field, err)
	}
	return e.commitLocked(func(s *session.Session) { *s = probe }), nil
}
