package version

// Version is the release version, overridden at build time with
// -ldflags "-X zsembells/pkg/version.Version=...".
var Version = "v1.0.0"

// RepoURL points at the project home.
const RepoURL = "https://github.com/SmeggMann99/ZSEM-Bells"
