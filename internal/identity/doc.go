// Package identity turns raw OS device descriptors into stable peripheral
// identities.
//
// An instance id such as USB\VID_046D&PID_C077\5&2B5A4F0&0&2 yields vendor
// 046D, product C077 and instance token 5_2B5A4F0_0_2, giving the unique id
// VID_046D_PID_C077_INST_5_2B5A4F0_0_2 and the model key 046D_C077.
//
// Built-in hardware (touchpads, internal hubs, Bluetooth radios, onboard
// audio, vendor-defined HID collections) is filtered out, the rest is
// classified, and descriptors sharing vendor, product and token are merged
// into one Descriptor whose type is the highest-priority member type.
package identity
