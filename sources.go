package marinelog

// Source IDs range from 0x00 to 0x7F. First hex digit identifies device or sensor type and second digit is free to
// be used as a local device ID. The 0x00-0x0F range is an exception where each value represents a different software
// source. Unallocated IDs are reserved, but messages with unknown source IDs are still processed.
const (
	// SourceLocal is for messages generated by the logging software
	SourceLocal uint8 = 0x00
	// SourceConv is for messages generated by data conversion tools
	SourceConv uint8 = 0x01
	// SourceTimer is for local/software timers
	SourceTimer uint8 = 0x02

	SourceTest1 uint8 = 0x05
	SourceTest2 uint8 = 0x06
	SourceTest3 uint8 = 0x07

	// SourceGPS is for GPS (or other satellite navigation) sources
	SourceGPS uint8 = 0x10
	// SourceADC is for generic analogue inputs
	SourceADC uint8 = 0x20
	// SourceNMEA is for NMEA bus sources
	SourceNMEA uint8 = 0x30
	// SourceI2C is for I2C bus sources
	SourceI2C uint8 = 0x40
	// SourceExternal is for external data recorded but not interpreted by the logger
	SourceExternal uint8 = 0x60
	// SourceMP is for devices with MessagePack output returning single value channels
	SourceMP uint8 = 0x70
	// SourceIMU is alias for SourceMP
	SourceIMU = SourceMP

	// MaxID is largest valid source or channel ID
	MaxID uint8 = 0x7F
)

// Channels common to all sources. Remaining channel numbers are free to be used by each source.
const (
	// ChannelName carries name of the source device
	ChannelName uint8 = 0x00
	// ChannelMap carries channel name map (log channels excluded)
	ChannelMap uint8 = 0x01
	// ChannelTimestamp carries source timestamp (milliseconds, arbitrary epoch)
	ChannelTimestamp uint8 = 0x02
	// ChannelRaw carries raw device data
	ChannelRaw uint8 = 0x03

	ChannelLogInfo    uint8 = 0x7D
	ChannelLogWarning uint8 = 0x7E
	ChannelLogError   uint8 = 0x7F
)
