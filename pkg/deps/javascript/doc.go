// Package javascript reads Node projects.
//
// Direct dependencies come from package.json. Trees come from the first
// usable lockfile in the order pnpm-lock.yaml, yarn.lock,
// npm-shrinkwrap.json, package-lock.json, bun.lock:
//
//   - pnpm lockfiles v5, v6 and v9; peer suffixes are stripped from keys so
//     every peer variant of a package is one node
//   - yarn classic, decoded line by line, and yarn berry (YAML); descriptors
//     that resolve to the same version are merged
//   - npm lockfiles v1 to v3, resolved by node_modules path
//   - bun's text lockfile; the binary bun.lockb is rejected with a hint
//
// Audit runs `pnpm audit`, `yarn audit` or `npm audit` depending on the
// lockfile present.
package javascript
