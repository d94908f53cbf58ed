package libertyconf

import (
	"context"
	"errors"
	"fmt"

	mapstruct "github.com/mitchellh/mapstructure"
	"pkt.systems/pslog"
)

const (
	errPref        = "libertyconf"
	decoderTagName = "conf"
)

// ErrNoServerXML is returned when the primary server configuration document
// does not exist.
var ErrNoServerXML = errors.New("libertyconf: server configuration document not found")

// SpringBootConflictError is returned when more than one
// springBootApplication element is declared across all parsed documents.
type SpringBootConflictError struct {
	First  string
	Second string
}

func (e *SpringBootConflictError) Error() string {
	return fmt.Sprintf("%s: only one springBootApplication can be configured,"+
		" found declarations in %s and %s", errPref, e.First, e.Second)
}

// IncludeError describes an include that could not be processed. Include
// errors are logged and the include is skipped.
type IncludeError struct {
	Location string
	Parent   string
	Err      error
}

func (e *IncludeError) Error() string {
	return fmt.Sprintf("%s: include %s in %s: %s", errPref, e.Location, e.Parent, e.Err)
}

func (e *IncludeError) Unwrap() error {
	return e.Err
}

// Loader is an interface for loaders of configuration documents referenced by
// include locations with schemes other than file.
type Loader interface {
	Load(ctx context.Context, loc *Locator) ([]byte, error)
}

// Options is a structure with configuration parameters for the scanner.
type Options struct {
	// Dirs specifies server directories. Either Dirs.ConfigDir or
	// Dirs.ServerXML must be set.
	Dirs Dirs

	// Logger receives warnings about skipped sources and includes. Logging is
	// disabled when nil.
	Logger pslog.Logger

	// Loaders specifies document loaders by locator scheme (http, https, map
	// and so on). Plain paths and file locations are always loaded from the
	// file system. No other loader is registered by default: includes with a
	// scheme missing here, http and https included, are logged and skipped.
	Loaders map[string]Loader

	// SystemProperties are loaded after bootstrap properties and before
	// variables directories.
	SystemProperties map[string]string

	// Getenv looks up environment variables. os.Getenv is used when nil.
	Getenv func(string) string

	// GOOS selects platform specific syntax. The host OS is used when empty.
	GOOS string
}

// Decode method decodes raw configuration data into structure. Note that the
// conf tags defined in the struct type can indicate which fields the values are
// mapped to. The decoder will make the following conversions:
//   - bools to string (true = "1", false = "0")
//   - numbers to string (base 10)
//   - bools to int/uint (true = 1, false = 0)
//   - strings to int/uint (base implied by prefix)
//   - int to bool (true if value != 0)
//   - string to bool (accepts: 1, t, T, TRUE, true, True, 0, f, F, FALSE, false,
//     False. Anything else is an error)
//   - empty array = empty map and vice versa
//   - single values are converted to slices if required. Each element also can
//     be converted. For example: "4" can become []int{4} if the target type is
//     an int slice.
func Decode(configRaw, config any) error {
	decoder, err := mapstruct.NewDecoder(
		&mapstruct.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           config,
			TagName:          decoderTagName,
		},
	)

	if err != nil {
		return err
	}

	err = decoder.Decode(configRaw)

	if err != nil {
		return fmt.Errorf("%s: %w", errPref, err)
	}

	return nil
}
