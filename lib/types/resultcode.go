package types

import "fmt"

// ResultCode is the numeric status the server reports in every message
// header. Zero means success; everything else surfaces as a ServerError.
type ResultCode int

const (
	ResultOK                   ResultCode = 0
	ResultServerError          ResultCode = 1
	ResultKeyNotFound          ResultCode = 2
	ResultGenerationError      ResultCode = 3
	ResultParameterError       ResultCode = 4
	ResultKeyExists            ResultCode = 5
	ResultBinExists            ResultCode = 6
	ResultClusterKeyMismatch   ResultCode = 7
	ResultServerMemError       ResultCode = 8
	ResultTimeout              ResultCode = 9
	ResultAlwaysForbidden      ResultCode = 10
	ResultPartitionUnavailable ResultCode = 11
	ResultBinTypeError         ResultCode = 12
	ResultRecordTooBig         ResultCode = 13
	ResultKeyBusy              ResultCode = 14
	ResultScanAbort            ResultCode = 15
	ResultUnsupportedFeature   ResultCode = 16
	ResultBinNotFound          ResultCode = 17
	ResultDeviceOverload       ResultCode = 18
	ResultKeyMismatch          ResultCode = 19
	ResultInvalidNamespace     ResultCode = 20
	ResultBinNameTooLong       ResultCode = 21
	ResultFailForbidden        ResultCode = 22
	ResultElementNotFound      ResultCode = 23
	ResultElementExists        ResultCode = 24
	ResultEnterpriseOnly       ResultCode = 25
	ResultOpNotApplicable      ResultCode = 26
	ResultFilteredOut          ResultCode = 27
	ResultLostConflict         ResultCode = 28
)

// String returns the string representation of a ResultCode.
func (c ResultCode) String() string {
	switch c {
	case ResultOK:
		return "ok"
	case ResultServerError:
		return "server error"
	case ResultKeyNotFound:
		return "key not found"
	case ResultGenerationError:
		return "generation mismatch"
	case ResultParameterError:
		return "parameter error"
	case ResultKeyExists:
		return "key already exists"
	case ResultBinExists:
		return "bin already exists"
	case ResultClusterKeyMismatch:
		return "cluster key mismatch"
	case ResultServerMemError:
		return "server out of memory"
	case ResultTimeout:
		return "server-side timeout"
	case ResultAlwaysForbidden:
		return "operation not allowed"
	case ResultPartitionUnavailable:
		return "partition unavailable"
	case ResultBinTypeError:
		return "bin type mismatch"
	case ResultRecordTooBig:
		return "record too big"
	case ResultKeyBusy:
		return "hot key"
	case ResultScanAbort:
		return "scan aborted"
	case ResultUnsupportedFeature:
		return "unsupported server feature"
	case ResultBinNotFound:
		return "bin not found"
	case ResultDeviceOverload:
		return "device overload"
	case ResultKeyMismatch:
		return "key mismatch"
	case ResultInvalidNamespace:
		return "invalid namespace"
	case ResultBinNameTooLong:
		return "bin name too long"
	case ResultFailForbidden:
		return "operation forbidden"
	case ResultElementNotFound:
		return "element not found"
	case ResultElementExists:
		return "element already exists"
	case ResultEnterpriseOnly:
		return "enterprise only"
	case ResultOpNotApplicable:
		return "operation not applicable"
	case ResultFilteredOut:
		return "filtered out"
	case ResultLostConflict:
		return "lost conflict"
	default:
		return fmt.Sprintf("unknown result code %d", int(c))
	}
}
