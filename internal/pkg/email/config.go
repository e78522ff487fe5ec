package email

import "fmt"

type Config struct {
	Host         string
	Port         int
	Username     string
	Password     string
	FromEmail    string
	FromName     string
	TemplatesDir string // optional, built-in templates are used when empty
}

func (c Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("email: smtp host is required")
	}
	if c.Port == 0 {
		return fmt.Errorf("email: smtp port is required")
	}
	if c.FromEmail == "" {
		return fmt.Errorf("email: from address is required")
	}
	return nil
}
