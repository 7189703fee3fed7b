// Package config holds the collector's YAML configuration.
package config

type Config struct {
	Source   Source `yaml:"source"`
	InfluxDB struct {
		URL          string `yaml:"url"`
		Organization string `yaml:"organization"`
		Bucket       string `yaml:"bucket"`
		Measurement  string `yaml:"measurement"`
	} `yaml:"influxdb"`
	NATS struct {
		URL     string `yaml:"url"`
		Subject string `yaml:"subject"`
	} `yaml:"nats"`
	Status struct {
		Listen string `yaml:"listen"`
	} `yaml:"status"`
}

type Source struct {
	Kind    string `yaml:"kind"`
	Device  string `yaml:"device"`
	Baud    int    `yaml:"baud"`
	Path    string `yaml:"path"`
	Chunk   int    `yaml:"chunk"`
	DelayMS int    `yaml:"delay_ms"`
}
