package common

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	commonconfig "github.com/armadaproject/ddlbench/internal/common/config"
	"github.com/armadaproject/ddlbench/internal/common/logging"
)

const baseConfigFileName = "config"

// BindCommandlineArguments makes every flag named in bindings that was set on the command line
// override the config key it maps to. Flags left unset, or not defined on flags, are ignored.
func BindCommandlineArguments(v *viper.Viper, flags *pflag.FlagSet, bindings map[string]string) error {
	for name, key := range bindings {
		flag := flags.Lookup(name)
		if flag == nil || !flag.Changed {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return errors.WithMessagef(err, "binding --%s to %s", name, key)
		}
		log.Debugf("Config key %s set from --%s", key, name)
	}
	return nil
}

// LoadConfig reads config.yaml from defaultPath, merges any override files on top of it, applies
// environment variables with the given prefix and unmarshals the result into config.
// Flags in bindings that were set override everything else. The unmarshalled struct is then
// checked against its validate tags.
func LoadConfig(
	config interface{},
	defaultPath string,
	overrideConfigs []string,
	envPrefix string,
	flags *pflag.FlagSet,
	bindings map[string]string,
) (*viper.Viper, error) {
	v := viper.New()

	v.SetConfigName(baseConfigFileName)
	v.AddConfigPath(defaultPath)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.WithMessagef(err, "error reading base config from %s", defaultPath)
		}
		log.Warnf("no base config found in %s, relying on overrides and defaults", defaultPath)
	} else {
		log.Infof("Read base config from %s", v.ConfigFileUsed())
	}

	for _, overrideConfig := range overrideConfigs {
		v.SetConfigFile(overrideConfig)
		if err := v.MergeInConfig(); err != nil {
			return nil, errors.WithMessagef(err, "error reading config from %s", overrideConfig)
		}
		log.Infof("Read config from %s", v.ConfigFileUsed())
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if flags != nil {
		if err := BindCommandlineArguments(v, flags, bindings); err != nil {
			return nil, err
		}
	}

	if err := v.Unmarshal(config, commonconfig.CustomHooks...); err != nil {
		return nil, errors.WithStack(err)
	}

	if err := validator.New().Struct(config); err != nil {
		commonconfig.LogValidationErrors(err)
		return nil, errors.WithMessage(err, "invalid config")
	}
	return v, nil
}

func ConfigureLogging(c logging.Config) {
	logging.Configure(c)
}
