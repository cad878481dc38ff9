// Copyright 2018-2019 CERN
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// In applying this license, CERN does not waive the privileges and immunities
// granted to it by virtue of its status as an Intergovernmental Organization
// or submit itself to any jurisdiction.

// Package config loads the work package service's settings from a YAML file
// and/or the environment (prefix WPS_), the way cmd/revad/config loads
// revad's: a viper instance with AutomaticEnv and a dot-to-underscore key
// replacer, decoded once into a typed struct at startup.
package config

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Settings holds every configuration value the service needs at startup.
// mapstructure tags are snake_case so they line up 1:1 with YAML keys and,
// via viper's env key replacer, with WPS_-prefixed env vars.
type Settings struct {
	ServiceInstanceID string `mapstructure:"service_instance_id"`

	// WorkPackageSigningKey is the raw JSON of an ES256 JWK used to sign
	// work-order tokens. Internal bearer assertions are verified with AuthKey.
	WorkPackageSigningKey string `mapstructure:"work_package_signing_key"`

	MongoDSN            string `mapstructure:"mongo_dsn"`
	MongoTimeoutSeconds int    `mapstructure:"mongo_timeout_seconds"`

	KafkaServers        []string `mapstructure:"kafka_servers"`
	DatasetChangeTopic  string   `mapstructure:"dataset_change_topic"`
	DatasetUpsertType   string   `mapstructure:"dataset_upsertion_type"`
	DatasetDeletionType string   `mapstructure:"dataset_deletion_type"`
	ConsumerGroup       string   `mapstructure:"consumer_group"`

	AccessURL string `mapstructure:"access_url"`

	AuthKey  string   `mapstructure:"auth_key"`
	AuthAlgs []string `mapstructure:"auth_algs"`

	ValidDays int `mapstructure:"valid_days"`

	Address string `mapstructure:"address"`

	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins"`

	LogLevel string `mapstructure:"log_level"`

	SweepEnabled  bool `mapstructure:"sweep_enabled"`
	SweepInterval int  `mapstructure:"sweep_interval_seconds"`
}

// ApplyDefaults fills in the values the configuration schema names a
// default for, following the config.ApplyDefaults() convention every revad
// service config type implements.
func (s *Settings) ApplyDefaults() {
	if s.ValidDays == 0 {
		s.ValidDays = 30
	}
	if len(s.AuthAlgs) == 0 {
		s.AuthAlgs = []string{"ES256"}
	}
	if s.MongoTimeoutSeconds == 0 {
		s.MongoTimeoutSeconds = 10
	}
	if s.ConsumerGroup == "" {
		s.ConsumerGroup = "work-package-service"
	}
	if s.Address == "" {
		s.Address = ":8080"
	}
	if s.LogLevel == "" {
		s.LogLevel = "info"
	}
	if s.SweepInterval == 0 {
		s.SweepInterval = 3600
	}
}

// mandatory lists the keys that must be non-empty after loading, per the
// external interface contract's mandatory-configuration list.
var mandatory = map[string]func(*Settings) bool{
	"service_instance_id":      func(s *Settings) bool { return s.ServiceInstanceID != "" },
	"work_package_signing_key": func(s *Settings) bool { return s.WorkPackageSigningKey != "" },
	"mongo_dsn":                func(s *Settings) bool { return s.MongoDSN != "" },
	"kafka_servers":            func(s *Settings) bool { return len(s.KafkaServers) > 0 },
	"dataset_change_topic":     func(s *Settings) bool { return s.DatasetChangeTopic != "" },
	"dataset_upsertion_type":   func(s *Settings) bool { return s.DatasetUpsertType != "" },
	"dataset_deletion_type":    func(s *Settings) bool { return s.DatasetDeletionType != "" },
	"access_url":               func(s *Settings) bool { return s.AccessURL != "" },
	"auth_key":                 func(s *Settings) bool { return s.AuthKey != "" },
}

// Load reads configuration from the given YAML file (may be empty, in which
// case only the environment is consulted) and from WPS_-prefixed environment
// variables, validates every mandatory key is present, and returns the
// populated Settings.
func Load(file string) (*Settings, error) {
	v := viper.New()
	v.SetEnvPrefix("wps")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv alone does not make Unmarshal see keys absent from the
	// file, so every settings key is bound to its WPS_ variable explicitly.
	st := reflect.TypeOf(Settings{})
	for i := 0; i < st.NumField(); i++ {
		if err := v.BindEnv(st.Field(i).Tag.Get("mapstructure")); err != nil {
			return nil, errors.Wrap(err, "error binding environment variable")
		}
	}

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, "error reading config file")
		}
	}

	s := &Settings{}
	decodeHook := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToSliceHookFunc(","),
	)
	if err := v.Unmarshal(s, viper.DecodeHook(decodeHook)); err != nil {
		return nil, errors.Wrap(err, "error decoding config")
	}
	s.ApplyDefaults()

	var missing []string
	for key, ok := range mandatory {
		if !ok(s) {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing mandatory configuration keys: %s", strings.Join(missing, ", "))
	}

	return s, nil
}
