// Package maven implements the Package Index for Maven repositories.
//
// # Coordinates
//
// Artifacts are named "groupId:artifactId", for example
// "com.google.guava:guava" or "org.apache.commons:commons-lang3".
//
// # Two-Tier Lookup
//
// Fetch first asks the Maven Central search API (search.maven.org), which
// returns the latest version and its release timestamp in one call. When
// search fails or does not know the artifact, each configured repository is
// probed for <group>/<artifact>/maven-metadata.xml in order, and the first
// answer wins:
//
//	client := maven.NewClient(backend, 24*time.Hour,
//	    maven.CentralURL, "https://maven.google.com")
//	meta, err := client.Fetch(ctx, "androidx.core:core")
//
// The POM of the resolved version supplies description, licenses,
// developers and dependencies. A missing or broken POM leaves those fields
// empty rather than failing Fetch.
//
// # Dependency Filtering
//
// Only compile and runtime dependencies are included. Test, provided,
// system, import and optional dependencies are dropped, as are coordinates
// that still contain unresolved ${...} properties.
//
// # Extra Keys
//
//   - "group_id", "artifact_id": the parsed coordinate
//   - "repository": the repository root that served the artifact
//   - "packaging": jar, pom, aar, ...
//   - "display_name": the POM <name>
//
// Maven repositories have no catalog endpoint, so FetchAll returns
// UNSUPPORTED.
package maven
