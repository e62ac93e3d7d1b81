package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/opswatch/incidentd/errors"
)

// Validate performs semantic checks that the schema cannot express.
func (c *Config) Validate() error {
	if c.Version != "1" {
		return errors.ConfigInvalid(fmt.Sprintf("unsupported version %q", c.Version))
	}

	listen := c.Server.Listen
	if strings.TrimSpace(listen) == "" {
		return errors.ConfigInvalid("server.listen must not be empty")
	}
	if _, _, err := net.SplitHostPort(listen); err != nil {
		return errors.ConfigInvalid(fmt.Sprintf("server.listen %q is not a host:port address", listen))
	}

	return nil
}
