package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidatePackageName validates a package name before it is interpolated
// into a registry URL or a cache key.
//
// The rules are registry-agnostic:
//   - No empty names
//   - No control characters
//   - No path traversal sequences (.., //, backslash)
//   - Maximum length of 256 characters
//
// Registry-specific rules live in the Validate*Name helpers below.
func ValidatePackageName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "package name cannot be empty")
	}

	if len(name) > 256 {
		return New(ErrCodeInvalidInput, "package name too long (max 256 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "package name contains invalid control characters")
		}
	}

	for _, pattern := range []string{"..", "//", "\\"} {
		if strings.Contains(name, pattern) {
			return New(ErrCodeInvalidInput, "package name contains invalid characters: %q", pattern)
		}
	}

	return nil
}

// npmPackageNameRegex matches valid npm package names.
var npmPackageNameRegex = regexp.MustCompile(`^(@[a-z0-9-~][a-z0-9-._~]*/)?[a-z0-9-~][a-z0-9-._~]*$`)

// ValidateNpmPackageName validates an npm package name.
func ValidateNpmPackageName(name string) error {
	if err := ValidatePackageName(name); err != nil {
		return err
	}
	if strings.ToLower(name) != name {
		return New(ErrCodeInvalidInput, "npm package names must be lowercase: %q", name)
	}
	if !npmPackageNameRegex.MatchString(name) {
		return New(ErrCodeInvalidInput, "invalid npm package name: %q", name)
	}
	return nil
}

// cratesPackageNameRegex matches valid crates.io package names.
var cratesPackageNameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]*$`)

// ValidateCratesPackageName validates a crates.io package name.
func ValidateCratesPackageName(name string) error {
	if err := ValidatePackageName(name); err != nil {
		return err
	}
	if !cratesPackageNameRegex.MatchString(name) {
		return New(ErrCodeInvalidInput, "invalid crates.io package name: %q", name)
	}
	return nil
}

// jsrPackageNameRegex matches "@scope/name" as accepted by JSR.
var jsrPackageNameRegex = regexp.MustCompile(`^@[a-z0-9-]+/[a-z0-9-]+$`)

// ValidateJSRPackageName validates a JSR package name, which is always scoped.
func ValidateJSRPackageName(name string) error {
	if err := ValidatePackageName(name); err != nil {
		return err
	}
	if !jsrPackageNameRegex.MatchString(name) {
		return New(ErrCodeInvalidInput, "invalid JSR package name (want @scope/name): %q", name)
	}
	return nil
}

// mavenCoordinateRegex matches "groupId:artifactId".
var mavenCoordinateRegex = regexp.MustCompile(`^[A-Za-z0-9_.-]+:[A-Za-z0-9_.-]+$`)

// ValidateMavenCoordinate validates a Maven "groupId:artifactId" coordinate.
func ValidateMavenCoordinate(coord string) error {
	if err := ValidatePackageName(coord); err != nil {
		return err
	}
	if !mavenCoordinateRegex.MatchString(coord) {
		return New(ErrCodeInvalidInput, "invalid Maven coordinate (want group:artifact): %q", coord)
	}
	return nil
}
