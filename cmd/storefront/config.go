package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/pricing"
)

// Config holds the storefront client settings, loadable from environment
// variables (STOREFRONT_ prefix) or YAML config files.
type Config struct {
	APIURL          string        `default:"http://localhost:8080" usage:"Order store base URL"`
	APIKey          string        `usage:"Staff API key for admin commands"`
	CartURL         string        `usage:"Blob bucket URL holding the cart (default: file bucket in the user config dir)"`
	ShopNumber      string        `default:"01700000000" usage:"Messaging number customers contact"`
	TrackingBaseURL string        `usage:"Public tracking page URL, joined with the tracking code"`
	ProductBaseURL  string        `usage:"Public product page URL, joined with the product ID"`
	Lang            string        `default:"en" usage:"Status label language (en, bn)"`
	Timeout         time.Duration `default:"10s" usage:"Order store request timeout"`
	Pricing         pricing.Config
}

func loadConfig() (*Config, error) {
	var cfg Config
	files := []string{"storefront.yaml"}
	if dir, err := os.UserConfigDir(); err == nil {
		files = append(files, filepath.Join(dir, "storefront", "config.yaml"))
	}
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "STOREFRONT",
		SkipFlags: true,
		Files:     files,
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	if err := cfg.Pricing.Validate(); err != nil {
		return nil, errors.Wrap(err, "pricing")
	}
	if cfg.CartURL == "" {
		url, err := defaultCartURL()
		if err != nil {
			return nil, err
		}
		cfg.CartURL = url
	}
	return &cfg, nil
}

func (c *Config) lang() order.Lang {
	if order.Lang(c.Lang) == order.LangBangla {
		return order.LangBangla
	}
	return order.LangEnglish
}

func defaultCartURL() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", errors.Wrap(err, "locate config dir")
	}
	return "file://" + filepath.ToSlash(filepath.Join(dir, "storefront")) + "?create_dir=true", nil
}
