package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var Conf *viper.Viper

func init() {
	Conf = viper.New()

	// defaults
	Conf.SetTypeByDefaultValue(true)
	Conf.SetDefault("debug", true)
	Conf.SetDefault("appName", "Darasa")
	Conf.SetDefault("secretKey", "k2$wq0m-ds(v&yp8e#1zr!5u+j9c4x_t7h@n6b3f*aglo)ime0")
	Conf.SetDefault("defaultLanguage", "en")

	// cloud backend
	Conf.SetDefault("backendURL", "")
	Conf.SetDefault("backendApiKey", "")
	Conf.SetDefault("backendTimeout", 30*time.Second)

	// realtime channel
	Conf.SetDefault("realtimeURL", "")
	Conf.SetDefault("presenceChannel", "darasa:presence")

	// assistant completion endpoint
	Conf.SetDefault("assistantURL", "")
	Conf.SetDefault("assistantApiKey", "")
	Conf.SetDefault("assistantModel", "claude-3-haiku-20240307")
	Conf.SetDefault("assistantTimeout", 2*time.Minute)

	// chat
	Conf.SetDefault("chatWindowSize", 50)
	Conf.SetDefault("chatHistoryLimit", 15)

	// registration: bcrypt hash of the shared staff secret; empty disables elevation
	Conf.SetDefault("adminSecretHash", "")

	Conf.SetDefault("rollbarToken", "")

	env := os.Getenv("ENV") // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case strings.ToUpper("TEST"):
		Conf.SetDefault("testMode", true)
	}
	Conf.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	Conf.AutomaticEnv()
}
