// Package config provides the configuration for tenderscan: request
// settings for the bulletin site, the fiscal year range to crawl, output
// locations, and the optional YAML configuration file.
package config
