package config

// Merge overlays the fields set in override onto base and returns the
// result. Neither argument is modified. Zero-valued override fields keep
// the base value; list fields replace rather than append.
func Merge(base, override *Config) *Config {
	out := *base
	out.Server.Origins = append([]string(nil), base.Server.Origins...)
	if override == nil {
		return &out
	}

	mergeString(&out.Resources.Root, override.Resources.Root)
	mergeString(&out.Resources.InstalledDir, override.Resources.InstalledDir)
	mergeString(&out.Resources.BundledDir, override.Resources.BundledDir)
	mergeString(&out.Resources.Program, override.Resources.Program)

	mergeString(&out.Temp.Dir, override.Temp.Dir)
	mergeString(&out.Temp.Prefix, override.Temp.Prefix)
	if override.Temp.Unique != nil {
		out.Temp.Unique = boolPtr(*override.Temp.Unique)
	}

	mergeString(&out.Server.Socket, override.Server.Socket)
	mergeString(&out.Server.HTTPListen, override.Server.HTTPListen)
	if len(override.Server.Origins) > 0 {
		out.Server.Origins = append([]string(nil), override.Server.Origins...)
	}

	if override.Defaults.BaudRate != 0 {
		out.Defaults.BaudRate = override.Defaults.BaudRate
	}
	if override.Defaults.Scale != 0 {
		out.Defaults.Scale = override.Defaults.Scale
	}
	mergeString(&out.Defaults.AxisFormat, override.Defaults.AxisFormat)

	mergeString(&out.Log.File, override.Log.File)
	mergeString(&out.Log.Level, override.Log.Level)
	out.Log.Trace = out.Log.Trace || override.Log.Trace
	mergeString(&out.Log.Audit, override.Log.Audit)

	return &out
}

func mergeString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
