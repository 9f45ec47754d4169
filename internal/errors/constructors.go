package errors

// Convenience constructors for common error patterns

// Manifest and configuration errors

func ManifestNotFound(path string) *RunnerError {
	return New(CategoryConfig, SeverityFatal, "build manifest not found").
		WithContext("path", path)
}

func UnsupportedVersion(got any) *RunnerError {
	return New(CategoryConfig, SeverityFatal, "unsupported manifest version, expected 2").
		WithContext("version", got)
}

func ValidationFailed(field, reason string) *RunnerError {
	return New(CategoryValidation, SeverityFatal, "validation failed").
		WithContext("field", field).
		WithContext("reason", reason)
}

// Environment errors

func UnknownImage(image string, accepted []string) *RunnerError {
	return New(CategoryValidation, SeverityFatal, "unknown build OS image").
		WithContext("image", image).
		WithContext("accepted", accepted)
}

func UnknownToolVersion(tool, version string, accepted []string) *RunnerError {
	return New(CategoryValidation, SeverityFatal, "unknown tool version").
		WithContext("tool", tool).
		WithContext("version", version).
		WithContext("accepted", accepted)
}

// Pipeline errors

func CommandFailed(step string, exitCode int, cause error) *RunnerError {
	return Wrap(cause, CategoryCommand, SeverityFatal, "build command failed").
		WithContext("step", step).
		WithExitCode(exitCode)
}

func CheckoutFailed(url string, cause error) *RunnerError {
	return Wrap(cause, CategoryCheckout, SeverityFatal, "project checkout failed").
		WithContext("url", url)
}

func DocToolFailed(tool string, cause error) *RunnerError {
	return Wrap(cause, CategoryDocTool, SeverityFatal, "documentation tool failed").
		WithContext("tool", tool)
}

func WorkspaceError(operation string, cause error) *RunnerError {
	return Wrap(cause, CategoryInternal, SeverityFatal, "workspace operation failed").
		WithContext("operation", operation)
}

func StorageError(operation string, cause error) *RunnerError {
	return Wrap(cause, CategoryStorage, SeverityError, "history store operation failed").
		WithContext("operation", operation)
}

// Daemon errors

func DaemonError(message string) *RunnerError {
	return New(CategoryDaemon, SeverityError, message)
}
