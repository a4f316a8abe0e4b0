package briefserver

// Version of the briefserver, set at build time with -ldflags.
var Version = "dev"
