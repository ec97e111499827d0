// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "Voyago")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "voyago.log")
	viper.SetDefault("main.log.rotation", RotationDaily)
	viper.SetDefault("main.log.maxsize", 1048576)

	viper.SetDefault("output.sqlite.enabled", true)
	viper.SetDefault("output.sqlite.path", "voyago.db")

	viper.SetDefault("output.mysql.enabled", false)
	viper.SetDefault("output.mysql.username", "voyago")
	viper.SetDefault("output.mysql.password", "")
	viper.SetDefault("output.mysql.database", "voyago")
	viper.SetDefault("output.mysql.host", "localhost")
	viper.SetDefault("output.mysql.port", "3306")

	viper.SetDefault("places.apikey", "")
	viper.SetDefault("places.baseurl", "https://places.googleapis.com/v1")
	viper.SetDefault("places.timeout", 10*time.Second)
	viper.SetDefault("places.ratelimitpersec", 10.0)
	viper.SetDefault("places.cachettl", 15*time.Minute)
	viper.SetDefault("places.debug", false)

	viper.SetDefault("media.basepath", "images/")
	viper.SetDefault("media.maxphotosperentity", 10)
	viper.SetDefault("media.maxconcurrent", 10)
	viper.SetDefault("media.downloadtimeout", 15*time.Second)
	viper.SetDefault("media.retrymaxattempts", 3)
	viper.SetDefault("media.retrybasedelay", 500*time.Millisecond)
	viper.SetDefault("media.retrymultiplier", 2.0)
	viper.SetDefault("media.jpegquality", 85)
	viper.SetDefault("media.debug", false)

	viper.SetDefault("populate.defaultneededcount", 5)
	viper.SetDefault("populate.debug", false)

	viper.SetDefault("webserver.enabled", true)
	viper.SetDefault("webserver.port", "8080")
	viper.SetDefault("webserver.publicurl", "")
	viper.SetDefault("webserver.debug", false)
}
