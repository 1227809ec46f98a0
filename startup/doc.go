// Package startup applies start-up values to a config.Registry before it starts serving.
//
// Values come from three layers, later layers overriding earlier ones:
//
//  1. a YAML file mapping parameter names to scalars (LoadFile)
//  2. environment variables such as SEARCHOPTS_READER_THREADS=4 (LoadEnv)
//  3. command line flags generated from the registry (BindFlags, LoadFlags)
//
// Apply writes the merged values through Registry.SetFromString, so hidden
// parameters can be set here and nowhere else once the registry serves.
// Unknown names are ignored with a debug log; an invalid value aborts Apply.
package startup
