package common

// App metadata.
const (
	AppName    = "Argon"
	AppVersion = "0.1.0"
	AppAuthor  = "HON95"
)
