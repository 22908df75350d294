package ustar

const (
	NUL       = byte(0) // Null character
	BLOCKSIZE = 512     // Length of processing blocks

	// BLOCKINGFACTOR is the historical tape convention of grouping 20
	// blocks into one physical record; archives are padded to a multiple
	// of RECORDSIZE.
	BLOCKINGFACTOR = 20
	RECORDSIZE     = BLOCKSIZE * BLOCKINGFACTOR

	LENGTH_NAME   = 100 // Max length of the name field
	LENGTH_LINK   = 100 // Max length of the linkname field
	LENGTH_PREFIX = 155 // Max length of the prefix field

	POSIX_MAGIC = "ustar\x00" // Magic field contents
	VERSION     = "00"        // Version field contents
)

// Header field offsets within a 512-byte block.
const (
	posName     = 0
	posMode     = 100
	posUID      = 108
	posGID      = 116
	posSize     = 124
	posMtime    = 136
	posChksum   = 148
	posTypeflag = 156
	posLinkname = 157
	posMagic    = 257
	posVersion  = 263
	posUname    = 265
	posGname    = 297
	posDevMajor = 329
	posDevMinor = 337
	posPrefix   = 345
	endPrefix   = 500
)
