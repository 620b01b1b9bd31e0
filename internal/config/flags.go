// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// NetAddress holds structured network address data for host and port.
// It implements the flag.Value interface.
type NetAddress struct {
	Host string
	Port int
}

func newFlagSet() *flag.FlagSet {
	return flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
}

// ParseFlags parses args into a sparse [StructuredConfig]. Positional
// arguments are kept in Args.
//
// Flags:
//
//	-a dev server address in format [host]:[port]
//	-s server-of-record base URL
//	-d SQLite DSN
//	-c/-config json file path with configs
//	-survey survey id
//	-survey-name survey display name
//	-support-email support contact shown in messages
//	-forms dev server forms directory
//	-max-size dev server submission ceiling (e.g. "10MB")
//	-request-timeout request timeout (e.g., "30s", "1m")
//	-submission-timeout single upload timeout
//	-force-encoded store binary payloads as data URIs
//	-metrics-address Prometheus listener address
func ParseFlags(fs *flag.FlagSet, args []string) (*StructuredConfig, error) {
	var serverAddress NetAddress
	var serverURL string
	var databaseDSN string
	var jsonConfigPath string
	var surveyID, surveyName, supportEmail string
	var formsDir, maxSize string
	var requestTimeout, submissionTimeout time.Duration
	var forceEncoded bool
	var metricsAddress string

	fs.Var(&serverAddress, "a", "Net address host:port")
	fs.StringVar(&serverURL, "s", "", "Server-of-record base URL")
	fs.StringVar(&databaseDSN, "d", "", "SQLite DSN")
	fs.StringVar(&jsonConfigPath, "c", "", "JSON config file path")
	fs.StringVar(&jsonConfigPath, "config", "", "JSON config file path (alias)")
	fs.StringVar(&surveyID, "survey", "", "Survey id")
	fs.StringVar(&surveyName, "survey-name", "", "Survey display name")
	fs.StringVar(&supportEmail, "support-email", "", "Support e-mail")
	fs.StringVar(&formsDir, "forms", "", "Forms directory")
	fs.StringVar(&maxSize, "max-size", "", "Maximum submission size (e.g., 5MB)")
	fs.DurationVar(&requestTimeout, "request-timeout", 0, "Request timeout (e.g., 30s, 1m)")
	fs.DurationVar(&submissionTimeout, "submission-timeout", 0, "Submission timeout (e.g., 5m)")
	fs.BoolVar(&forceEncoded, "force-encoded", false, "Store binary payloads as data URIs")
	fs.StringVar(&metricsAddress, "metrics-address", "", "Prometheus listener host:port")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("error parsing flags: %w", err)
	}

	return &StructuredConfig{
		App: App{
			SurveyID:     surveyID,
			SurveyName:   surveyName,
			SupportEmail: supportEmail,
		},
		Adapter: Adapter{
			ServerURL:         serverURL,
			RequestTimeout:    requestTimeout,
			SubmissionTimeout: submissionTimeout,
		},
		Storage: Storage{
			DB:           DB{DSN: databaseDSN},
			ForceEncoded: forceEncoded,
		},
		Metrics: Metrics{Address: metricsAddress},
		Server: Server{
			HTTPAddress:    serverAddress.String(),
			FormsDir:       formsDir,
			MaxSize:        maxSize,
			RequestTimeout: requestTimeout,
		},
		JSONFilePath: jsonConfigPath,
		Args:         fs.Args(),
	}, nil
}

// String returns a canonical host:port string for a NetAddress.
// If neither Host nor Port are set, it returns an empty string.
func (a *NetAddress) String() string {
	if a.Host == "" && a.Port == 0 {
		return ""
	}

	return a.Host + ":" + strconv.Itoa(a.Port)
}

// Set parses the input string of form host:port and populates the NetAddress.
// It validates the port range, checks IP correctness unless host is "localhost",
// and returns an error if the format or values are invalid.
func (a *NetAddress) Set(s string) error {
	hostAndPort := strings.Split(s, ":")
	if len(hostAndPort) != 2 {
		return errors.New("need address in a form `host:port`")
	}

	host := hostAndPort[0]
	port, err := strconv.Atoi(hostAndPort[1])
	if err != nil {
		return err
	}

	if port < 1 {
		return errors.New("port number is a positive integer")
	}

	if host != "localhost" {
		ip := net.ParseIP(hostAndPort[0])
		if ip == nil {
			return errors.New("incorrect IP-address provided")
		}
	}

	a.Host = host
	a.Port = port
	return nil
}
