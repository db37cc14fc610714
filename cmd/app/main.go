package main

import (
	"github.com/ds124wfegd/WB_L3/6/config"
	"github.com/ds124wfegd/WB_L3/6/internal/appServer"

	"github.com/sirupsen/logrus"
)

func main() {
	v, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	cfg, err := config.ParseConfig(v)
	if err != nil {
		logrus.Fatalf("Failed to parse config: %v", err)
	}

	appServer.NewServer(cfg)
}
