// Package config loads the process configuration: defaults, an optional
// config file and COVIDSCOPE_ environment overrides, in that order.
package config

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"golang.org/x/text/language"

	"github.com/anrid/covid-scope/pkg/camera"
	"github.com/anrid/covid-scope/pkg/geometry"
	"github.com/anrid/covid-scope/pkg/scope"
)

const EnvPrefix = "COVIDSCOPE"

const (
	dataBaseURL   = "https://raw.githubusercontent.com/CSSEGISandData/COVID-19/master/csse_covid_19_data/csse_covid_19_time_series"
	epochLayout   = "2006-01-02"
	unitRadius    = 0.002
	unitHeight    = 0.0047
	defaultFaces  = 4
	defaultListen = ":8080"
)

type Config struct {
	Data      Data      `mapstructure:"data"`
	Column    Column    `mapstructure:"column"`
	Camera    Camera    `mapstructure:"camera"`
	Picker    Picker    `mapstructure:"picker"`
	Animation Animation `mapstructure:"animation"`
	Render    Render    `mapstructure:"render"`
	Server    Server    `mapstructure:"server"`
	Locale    string    `mapstructure:"locale" validate:"required,bcp47_language_tag"`
	Log       Log       `mapstructure:"log"`
}

type Data struct {
	CasesURL  string `mapstructure:"cases_url" validate:"required,url"`
	DeathsURL string `mapstructure:"deaths_url" validate:"required,url"`
	CachePath string `mapstructure:"cache_path" validate:"required"`
	Epoch     string `mapstructure:"epoch" validate:"required,datetime=2006-01-02"`
}

// Column sizes are world units. A zero Radius or HeightScale is derived from
// the world size.
type Column struct {
	FaceCount   int      `mapstructure:"face_count" validate:"min=3"`
	Radius      float64  `mapstructure:"radius" validate:"gte=0"`
	HeightScale float64  `mapstructure:"height_scale" validate:"gte=0"`
	Rotation    *float64 `mapstructure:"rotation"`
}

type Camera struct {
	FOV        float64 `mapstructure:"fov" validate:"gt=0,lt=3.14159"`
	TileSize   float64 `mapstructure:"tile_size" validate:"gt=0"`
	WorldSize  float64 `mapstructure:"world_size" validate:"gt=0,pow2"`
	NearFactor float64 `mapstructure:"near_factor" validate:"gt=0"`
	FarFactor  float64 `mapstructure:"far_factor" validate:"gtfield=NearFactor"`
}

type Picker struct {
	Debounce time.Duration `mapstructure:"debounce" validate:"gte=0"`
}

type Animation struct {
	Speed float64 `mapstructure:"speed" validate:"gt=0"`
}

type Render struct {
	Refresh time.Duration `mapstructure:"refresh" validate:"gt=0"`
	// Shading lights columns by face normal; off draws flat palette colors.
	Shading bool `mapstructure:"shading"`
}

type Server struct {
	Listen string `mapstructure:"listen" validate:"required,hostname_port"`
}

type Log struct {
	Level       string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Development bool   `mapstructure:"development"`
}

func setDefaults(v *viper.Viper) {
	cam := camera.DefaultOptions()

	v.SetDefault("data.cases_url", dataBaseURL+"/time_series_covid19_confirmed_global.csv")
	v.SetDefault("data.deaths_url", dataBaseURL+"/time_series_covid19_deaths_global.csv")
	v.SetDefault("data.cache_path", "covid-scope.db.json")
	v.SetDefault("data.epoch", "2020-01-22")
	v.SetDefault("column.face_count", defaultFaces)
	v.SetDefault("column.radius", 0)
	v.SetDefault("column.height_scale", 0)
	v.SetDefault("camera.fov", cam.FOV)
	v.SetDefault("camera.tile_size", cam.TileSize)
	v.SetDefault("camera.world_size", cam.WorldSize)
	v.SetDefault("camera.near_factor", cam.NearFactor)
	v.SetDefault("camera.far_factor", cam.FarFactor)
	v.SetDefault("picker.debounce", 50*time.Millisecond)
	v.SetDefault("animation.speed", 15)
	v.SetDefault("render.refresh", 16*time.Millisecond)
	v.SetDefault("render.shading", true)
	v.SetDefault("server.listen", defaultListen)
	v.SetDefault("locale", "en")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	val := validator.New()
	err := val.RegisterValidation("pow2", func(fl validator.FieldLevel) bool {
		f := fl.Field().Float()
		if f < 1 || f != math.Trunc(f) || f > math.MaxUint32 {
			return false
		}
		return bits.OnesCount64(uint64(f)) == 1
	})
	if err != nil {
		panic(err)
	}
	return val
}

// Load reads the configuration. file may be empty.
func Load(file string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// no default, so it has to be bound to be seen by Unmarshal
	if err := v.BindEnv("column.rotation"); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the struct tags.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag())
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Epoch is the date of the first day column.
func (c *Config) Epoch() time.Time {
	t, err := time.Parse(epochLayout, c.Data.Epoch)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Language is the parsed locale, English when it does not parse.
func (c *Config) Language() language.Tag {
	tag, err := language.Parse(c.Locale)
	if err != nil {
		return language.English
	}
	return tag
}

func (c *Config) CameraOptions() camera.Options {
	return camera.Options{
		FOV:        c.Camera.FOV,
		TileSize:   c.Camera.TileSize,
		WorldSize:  c.Camera.WorldSize,
		NearFactor: c.Camera.NearFactor,
		FarFactor:  c.Camera.FarFactor,
	}
}

// ColumnOptions resolves the mesh options. The rotation defaults to
// pi/FaceCount, which turns the faces towards the axes.
func (c *Config) ColumnOptions() geometry.ColumnOptions {
	radius := c.Column.Radius
	if radius == 0 {
		radius = unitRadius * c.Camera.WorldSize
	}
	rotation := math.Pi / float64(c.Column.FaceCount)
	if c.Column.Rotation != nil {
		rotation = *c.Column.Rotation
	}
	return geometry.ColumnOptions{
		FaceCount: c.Column.FaceCount,
		Radius:    radius,
		Rotation:  rotation,
	}
}

func (c *Config) HeightScale() float64 {
	if c.Column.HeightScale == 0 {
		return unitHeight * c.Camera.WorldSize
	}
	return c.Column.HeightScale
}

// ScopeOptions assembles the controller options. Clock is left to the caller.
func (c *Config) ScopeOptions() scope.Options {
	return scope.Options{
		Camera:      c.CameraOptions(),
		Column:      c.ColumnOptions(),
		HeightScale: c.HeightScale(),
		Speed:       c.Animation.Speed,
		Debounce:    c.Picker.Debounce,
		Locale:      c.Language(),
		Unlit:       !c.Render.Shading,
	}
}
