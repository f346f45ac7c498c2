// Package flagx binds cobra flags to tagged struct fields.
//
//	type checkFlags struct {
//	    Settings string        `flag:"settings,s" usage:"settings source"`
//	    Timeout  time.Duration `flag:"timeout" default:"2s" usage:"worker request timeout"`
//	    Workers  int           `flag:"workers,w" default:"2" required:"true"`
//	}
//
//	var f checkFlags
//	_ = flagx.BindFlags(cmd, &f)   // while building the command
//	_ = flagx.ParseFlags(cmd, &f)  // inside RunE
package flagx

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var durationType = reflect.TypeOf(time.Duration(0))

type tagInfo struct {
	name     string
	short    string
	usage    string
	def      string
	required bool
}

func parseTag(f reflect.StructField) (tagInfo, bool) {
	tag := f.Tag.Get("flag")
	if tag == "" {
		return tagInfo{}, false
	}
	parts := strings.Split(tag, ",")
	info := tagInfo{
		name:     parts[0],
		usage:    f.Tag.Get("usage"),
		def:      f.Tag.Get("default"),
		required: f.Tag.Get("required") == "true",
	}
	if len(parts) > 1 {
		info.short = parts[1]
	}
	return info, true
}

func structValue(target interface{}) (reflect.Value, error) {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("target must be a pointer to struct")
	}
	return v.Elem(), nil
}

// ParseFlags copies flag values from cmd into the tagged fields of target
func ParseFlags(cmd *cobra.Command, target interface{}) error {
	v, err := structValue(target)
	if err != nil {
		return err
	}
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		if !field.CanSet() {
			continue
		}
		info, ok := parseTag(t.Field(i))
		if !ok {
			continue
		}
		if err := setFieldValue(cmd, field, info.name); err != nil {
			return fmt.Errorf("parse field %s: %w", t.Field(i).Name, err)
		}
	}
	return nil
}

func setFieldValue(cmd *cobra.Command, field reflect.Value, name string) error {
	flags := cmd.Flags()

	if field.Type() == durationType {
		val, err := flags.GetDuration(name)
		if err != nil {
			return err
		}
		field.SetInt(int64(val))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		val, err := flags.GetString(name)
		if err != nil {
			return err
		}
		field.SetString(val)
	case reflect.Int, reflect.Int64:
		val, err := flags.GetInt(name)
		if err != nil {
			return err
		}
		field.SetInt(int64(val))
	case reflect.Bool:
		val, err := flags.GetBool(name)
		if err != nil {
			return err
		}
		field.SetBool(val)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice element type: %s", field.Type().Elem().Kind())
		}
		val, err := flags.GetStringSlice(name)
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(val))
	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}
	return nil
}

// BindFlags registers one flag per tagged field of target on cmd
func BindFlags(cmd *cobra.Command, target interface{}) error {
	return bindFlagSet(cmd.Flags(), cmd.MarkFlagRequired, target)
}

// BindPersistentFlags is BindFlags for flags inherited by subcommands
func BindPersistentFlags(cmd *cobra.Command, target interface{}) error {
	return bindFlagSet(cmd.PersistentFlags(), cmd.MarkPersistentFlagRequired, target)
}

func bindFlagSet(flags *pflag.FlagSet, markRequired func(string) error, target interface{}) error {
	v, err := structValue(target)
	if err != nil {
		return err
	}
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		info, ok := parseTag(t.Field(i))
		if !ok {
			continue
		}
		if err := registerFlag(flags, t.Field(i).Type, info); err != nil {
			return fmt.Errorf("bind field %s: %w", t.Field(i).Name, err)
		}
		if info.required {
			if err := markRequired(info.name); err != nil {
				return err
			}
		}
	}
	return nil
}

func registerFlag(flags *pflag.FlagSet, typ reflect.Type, info tagInfo) error {
	if typ == durationType {
		var def time.Duration
		if info.def != "" {
			d, err := time.ParseDuration(info.def)
			if err != nil {
				return fmt.Errorf("invalid default %q: %w", info.def, err)
			}
			def = d
		}
		flags.DurationP(info.name, info.short, def, info.usage)
		return nil
	}

	switch typ.Kind() {
	case reflect.String:
		flags.StringP(info.name, info.short, info.def, info.usage)
	case reflect.Int, reflect.Int64:
		def := 0
		if info.def != "" {
			n, err := strconv.Atoi(info.def)
			if err != nil {
				return fmt.Errorf("invalid default %q: %w", info.def, err)
			}
			def = n
		}
		flags.IntP(info.name, info.short, def, info.usage)
	case reflect.Bool:
		def := false
		if info.def != "" {
			b, err := strconv.ParseBool(info.def)
			if err != nil {
				return fmt.Errorf("invalid default %q: %w", info.def, err)
			}
			def = b
		}
		flags.BoolP(info.name, info.short, def, info.usage)
	case reflect.Slice:
		if typ.Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice element type: %s", typ.Elem().Kind())
		}
		var def []string
		if info.def != "" {
			def = strings.Split(info.def, ";")
		}
		flags.StringSliceP(info.name, info.short, def, info.usage)
	default:
		return fmt.Errorf("unsupported field type: %s", typ.Kind())
	}
	return nil
}
