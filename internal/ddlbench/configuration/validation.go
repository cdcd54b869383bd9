package configuration

import (
	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	commonconfig "github.com/armadaproject/ddlbench/internal/common/config"
)

// Validate checks the config's struct tags, then the constraints between fields that tags cannot
// express. All problems found are returned together.
func (c RunConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		commonconfig.LogValidationErrors(err)
		return errors.WithMessage(err, "invalid config")
	}

	var result *multierror.Error
	if c.Database.ConnectAttempts == 0 {
		result = multierror.Append(result, errors.New("database.connectAttempts must be at least 1"))
	}
	if c.Database.ConnectRetryDelay < 0 {
		result = multierror.Append(result, errors.New("database.connectRetryDelay must be non-negative"))
	}
	if err := c.Workers.Validate(); err != nil {
		result = multierror.Append(result, err)
	}
	if c.StartupTimeout < 0 {
		result = multierror.Append(result, errors.New("startupTimeout must be non-negative"))
	}
	if c.TeardownTimeout < 0 {
		result = multierror.Append(result, errors.New("teardownTimeout must be non-negative"))
	}
	if c.TerminationTimeout <= 0 {
		result = multierror.Append(result, errors.New("terminationTimeout must be positive"))
	}
	if c.ProgressInterval <= 0 {
		result = multierror.Append(result, errors.New("progressInterval must be positive"))
	}
	if err := c.Logging.Validate(); err != nil {
		result = multierror.Append(result, errors.WithMessage(err, "logging"))
	}
	return result.ErrorOrNil()
}

func (c ProfilerConfig) Validate() error {
	counts := []struct {
		name  string
		value int
	}{
		{"workers.read", c.ReadWorkers},
		{"workers.insert", c.InsertWorkers},
		{"workers.update", c.UpdateWorkers},
		{"workers.delete", c.DeleteWorkers},
	}
	for _, count := range counts {
		if count.value < 0 {
			return errors.Errorf("%s must be non-negative", count.name)
		}
	}
	return nil
}
