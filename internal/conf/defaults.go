// conf/defaults.go: default values for viper keys.
package conf

import "github.com/spf13/viper"

// setDefaultConfig sets the default values for each configuration parameter.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "go-looper")

	viper.SetDefault("audio.device", "default")
	viper.SetDefault("audio.samplerate", 44100)
	viper.SetDefault("audio.channels", 2)
	viper.SetDefault("audio.framesize", 128)

	viper.SetDefault("looper.tracks", 16)
	viper.SetDefault("looper.groups", 4)
	viper.SetDefault("looper.maxseconds", 60)
	viper.SetDefault("looper.memorycap", 0.0)

	viper.SetDefault("serial.enabled", false)
	viper.SetDefault("serial.port", "/dev/ttyUSB0")
	viper.SetDefault("serial.baud", 115200)

	viper.SetDefault("diag.enabled", false)
	viper.SetDefault("diag.listen", ":8090")
}
